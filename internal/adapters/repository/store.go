// Package repository defines the persistence contracts for rules, matches,
// the ledger and bets, with an in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// RuleStore holds the global rule catalogue in insertion order.
type RuleStore interface {
	ListRules(ctx context.Context) ([]model.Rule, error)
	GetRule(ctx context.Context, id string) (model.Rule, error)
	// CreateRule returns ErrConflict when the id is taken.
	CreateRule(ctx context.Context, r model.Rule) error
	DeleteRule(ctx context.Context, id string) error
	// ReplaceRule removes oldID and stores r in its place, atomically.
	ReplaceRule(ctx context.Context, oldID string, r model.Rule) error
}

// MatchStore holds match documents.
type MatchStore interface {
	CreateMatch(ctx context.Context, m model.Match) error
	GetMatch(ctx context.Context, id string) (model.Match, error)
	// ListMatches returns matches newest first by date, then creation time.
	ListMatches(ctx context.Context) ([]model.Match, error)
	// UpdateMatch runs fn on a copy of the stored match while holding the
	// store's write lock, then saves the result. An error from fn aborts
	// the write and is returned unchanged.
	UpdateMatch(ctx context.Context, id string, fn func(*model.Match) error) (model.Match, error)
	// CloseMatch is UpdateMatch plus appending the transactions fn returns,
	// in one write.
	CloseMatch(ctx context.Context, id string, fn func(*model.Match) ([]model.Transaction, error)) (model.Match, []model.Transaction, error)
}

// LedgerStore holds transactions.
type LedgerStore interface {
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	// MarkPaid flags a transaction as settled. Idempotent.
	MarkPaid(ctx context.Context, id string) (model.Transaction, error)
}

// BetStore holds bets.
type BetStore interface {
	CreateBet(ctx context.Context, b model.Bet) error
	GetBet(ctx context.Context, id string) (model.Bet, error)
	ListBets(ctx context.Context) ([]model.Bet, error)
	// SettleBet runs fn on the stored bet and appends the transactions it
	// returns, in one write.
	SettleBet(ctx context.Context, id string, fn func(*model.Bet) ([]model.Transaction, error)) (model.Bet, []model.Transaction, error)
}

// Store bundles every store the service needs.
type Store interface {
	RuleStore
	MatchStore
	LedgerStore
	BetStore
	Close() error
}
