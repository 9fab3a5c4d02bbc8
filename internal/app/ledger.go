package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/penaltyhub/internal/domain/ledger"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/pkg/logger"
	"github.com/okian/penaltyhub/pkg/metrics"
)

const maxSpiciness = 5

// BalanceView is a player's summary plus the unpaid entries behind it.
type BalanceView struct {
	ledger.Summary
	Outstanding []model.Transaction `json:"outstanding"`
}

// BetDraft is what a caller provides to propose a bet.
type BetDraft struct {
	Description   string              `json:"description"`
	Proposer      string              `json:"proposer"`
	Participants  []string            `json:"participants"`
	Stake         string              `json:"stake"`
	StakeCategory model.StakeCategory `json:"stake_category"`
	MonetaryValue decimal.Decimal     `json:"monetary_value"`
	Spiciness     int                 `json:"spiciness"`
}

// ListTransactions returns the ledger, or only entries involving name.
func (s *Service) ListTransactions(ctx context.Context, name string) ([]model.Transaction, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil || name == "" {
		return txs, err
	}
	return slices.DeleteFunc(txs, func(tx model.Transaction) bool {
		return tx.From != name && tx.To != name
	}), nil
}

// MarkPaid settles one transaction.
func (s *Service) MarkPaid(ctx context.Context, id string) (model.Transaction, error) {
	if err := s.running(); err != nil {
		return model.Transaction{}, err
	}
	tx, err := s.store.MarkPaid(ctx, id)
	if err != nil {
		return model.Transaction{}, err
	}
	s.logger.Info(ctx, "transaction paid", logger.String("tx_id", id), logger.String("from", tx.From))
	return tx, nil
}

// Balance summarizes what a player owes and is owed.
func (s *Service) Balance(ctx context.Context, name string) (BalanceView, error) {
	if err := s.running(); err != nil {
		return BalanceView{}, err
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return BalanceView{}, err
	}
	return BalanceView{
		Summary:     ledger.Balance(name, txs),
		Outstanding: ledger.Outstanding(name, txs),
	}, nil
}

// FundBalance is what is still owed to the communal fund.
func (s *Service) FundBalance(ctx context.Context) (decimal.Decimal, error) {
	if err := s.running(); err != nil {
		return decimal.Zero, err
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.FundBalance(txs), nil
}

// CreateBet validates a draft and stores an open bet.
func (s *Service) CreateBet(ctx context.Context, d BetDraft) (model.Bet, error) {
	if err := s.running(); err != nil {
		return model.Bet{}, err
	}
	if strings.TrimSpace(d.Description) == "" || d.Proposer == "" {
		return model.Bet{}, fmt.Errorf("%w: description and proposer are required", ErrInvalidInput)
	}
	players := mapset.NewThreadUnsafeSet(d.Proposer)
	for _, p := range d.Participants {
		if p == "" || !players.Add(p) {
			return model.Bet{}, fmt.Errorf("%w: participant %q is empty or repeated", ErrInvalidInput, p)
		}
	}
	if len(d.Participants) == 0 {
		return model.Bet{}, fmt.Errorf("%w: a bet needs at least one other participant", ErrInvalidInput)
	}
	if d.MonetaryValue.IsNegative() {
		return model.Bet{}, fmt.Errorf("%w: monetary value must not be negative", ErrInvalidInput)
	}
	if d.Spiciness < 0 || d.Spiciness > maxSpiciness {
		return model.Bet{}, fmt.Errorf("%w: spiciness must be between 0 and %d", ErrInvalidInput, maxSpiciness)
	}
	switch d.StakeCategory {
	case "":
		d.StakeCategory = model.StakeOther
	case model.StakeMoney, model.StakeDrink, model.StakeFood, model.StakeHumiliation, model.StakeOther, model.StakeFund:
	default:
		return model.Bet{}, fmt.Errorf("%w: unknown stake category %q", ErrInvalidInput, d.StakeCategory)
	}

	b := model.Bet{
		ID:            uuid.NewString(),
		OwnerID:       s.ownerID,
		Description:   d.Description,
		Proposer:      d.Proposer,
		Participants:  slices.Clone(d.Participants),
		Stake:         d.Stake,
		StakeCategory: d.StakeCategory,
		MonetaryValue: d.MonetaryValue.Round(2),
		Spiciness:     d.Spiciness,
		Status:        model.BetOpen,
	}
	if err := s.store.CreateBet(ctx, b); err != nil {
		return model.Bet{}, err
	}
	s.logger.Info(ctx, "bet proposed", logger.String("bet_id", b.ID), logger.String("proposer", b.Proposer))
	return b, nil
}

// GetBet returns one bet.
func (s *Service) GetBet(ctx context.Context, id string) (model.Bet, error) {
	if err := s.running(); err != nil {
		return model.Bet{}, err
	}
	return s.store.GetBet(ctx, id)
}

// ListBets returns every bet.
func (s *Service) ListBets(ctx context.Context) ([]model.Bet, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.ListBets(ctx)
}

// SettleBet declares a winner and records what the losers owe.
func (s *Service) SettleBet(ctx context.Context, id, winner string) (model.Bet, []model.Transaction, error) {
	if err := s.running(); err != nil {
		return model.Bet{}, nil, err
	}
	date := s.now().Format(time.DateOnly)
	b, txs, err := s.store.SettleBet(ctx, id, func(b *model.Bet) ([]model.Transaction, error) {
		settled, txs, err := ledger.SettleBet(*b, winner, s.ownerID, date)
		if err != nil {
			return nil, err
		}
		*b = settled
		return txs, nil
	})
	if err != nil {
		return model.Bet{}, nil, err
	}
	metrics.RecordBetSettled()
	metrics.RecordTransactions(len(txs))
	s.logger.Info(ctx, "bet settled", logger.String("bet_id", id), logger.String("winner", winner))
	return b, txs, nil
}
