// Package sqlite is a durable repository.Store on SQLite. Each entity is a
// JSON document keyed by id; the schema is applied by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/okian/penaltyhub/internal/adapters/repository"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/pkg/metrics"
)

// Storage implements repository.Store.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.Store = (*Storage)(nil)

// New opens (or creates) the database at path and migrates it.
func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Up(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Storage) Close() error { return s.db.Close() }

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency("sqlite_"+op, float64(time.Since(start).Microseconds())/1000)
}

// conflict maps unique violations to repository.ErrConflict.
func conflict(err error, what string) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w", what, repository.ErrConflict)
	}
	return err
}

func load(ctx context.Context, q queryer, query, id, what string, dst any) error {
	var doc string
	err := q.QueryRowContext(ctx, query, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, repository.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(doc), dst)
}

func listDocs[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Storage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Storage) ListRules(ctx context.Context) ([]model.Rule, error) {
	return listDocs[model.Rule](ctx, s.db, `SELECT doc FROM rules ORDER BY position`)
}

func (s *Storage) GetRule(ctx context.Context, id string) (model.Rule, error) {
	var r model.Rule
	err := load(ctx, s.db, `SELECT doc FROM rules WHERE id = ?`, id, "rule", &r)
	return r, err
}

func (s *Storage) CreateRule(ctx context.Context, r model.Rule) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rules (id, position, doc) VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM rules), ?)`,
		r.ID, string(doc))
	return conflict(err, "rule "+r.ID)
}

func (s *Storage) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// ReplaceRule keeps the catalogue position of the rule it replaces.
func (s *Storage) ReplaceRule(ctx context.Context, oldID string, r model.Rule) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE rules SET id = ?, doc = ? WHERE id = ?`, r.ID, string(doc), oldID)
	if err != nil {
		return conflict(err, "rule "+r.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", oldID, repository.ErrNotFound)
	}
	return nil
}

func (s *Storage) CreateMatch(ctx context.Context, m model.Match) error {
	defer observe("create_match", time.Now())
	now := s.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	doc, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (id, date, created_at, doc) VALUES (?, ?, ?, ?)`,
		m.ID, m.Date, m.CreatedAt.UTC().Format(time.RFC3339Nano), string(doc))
	return conflict(err, "match "+m.ID)
}

func (s *Storage) GetMatch(ctx context.Context, id string) (model.Match, error) {
	defer observe("get_match", time.Now())
	var m model.Match
	err := load(ctx, s.db, `SELECT doc FROM matches WHERE id = ?`, id, "match", &m)
	return m, err
}

func (s *Storage) ListMatches(ctx context.Context) ([]model.Match, error) {
	ms, err := listDocs[model.Match](ctx, s.db, `SELECT doc FROM matches`)
	if err != nil {
		return nil, err
	}
	repository.SortMatches(ms)
	return ms, nil
}

func (s *Storage) UpdateMatch(ctx context.Context, id string, fn func(*model.Match) error) (model.Match, error) {
	m, _, err := s.CloseMatch(ctx, id, func(m *model.Match) ([]model.Transaction, error) {
		return nil, fn(m)
	})
	return m, err
}

func (s *Storage) CloseMatch(ctx context.Context, id string, fn func(*model.Match) ([]model.Transaction, error)) (model.Match, []model.Transaction, error) {
	defer observe("update_match", time.Now())
	var (
		m   model.Match
		txs []model.Transaction
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := load(ctx, tx, `SELECT doc FROM matches WHERE id = ?`, id, "match", &m); err != nil {
			return err
		}
		var err error
		if txs, err = fn(&m); err != nil {
			return err
		}
		m.ID = id
		m.UpdatedAt = s.now()
		doc, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE matches SET date = ?, doc = ? WHERE id = ?`, m.Date, string(doc), id); err != nil {
			return err
		}
		return insertTransactions(ctx, tx, txs)
	})
	if err != nil {
		return model.Match{}, nil, err
	}
	return m, txs, nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, txs []model.Transaction) error {
	for _, t := range txs {
		doc, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO transactions (id, doc) VALUES (?, ?)`, t.ID, string(doc)); err != nil {
			return conflict(err, "transaction "+t.ID)
		}
	}
	return nil
}

func (s *Storage) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	return listDocs[model.Transaction](ctx, s.db, `SELECT doc FROM transactions ORDER BY seq`)
}

func (s *Storage) MarkPaid(ctx context.Context, id string) (model.Transaction, error) {
	var t model.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := load(ctx, tx, `SELECT doc FROM transactions WHERE id = ?`, id, "transaction", &t); err != nil {
			return err
		}
		t.IsPaid = true
		doc, err := json.Marshal(t)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE transactions SET doc = ? WHERE id = ?`, string(doc), id)
		return err
	})
	return t, err
}

func (s *Storage) CreateBet(ctx context.Context, b model.Bet) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO bets (id, doc) VALUES (?, ?)`, b.ID, string(doc))
	return conflict(err, "bet "+b.ID)
}

func (s *Storage) GetBet(ctx context.Context, id string) (model.Bet, error) {
	var b model.Bet
	err := load(ctx, s.db, `SELECT doc FROM bets WHERE id = ?`, id, "bet", &b)
	return b, err
}

func (s *Storage) ListBets(ctx context.Context) ([]model.Bet, error) {
	return listDocs[model.Bet](ctx, s.db, `SELECT doc FROM bets ORDER BY seq`)
}

func (s *Storage) SettleBet(ctx context.Context, id string, fn func(*model.Bet) ([]model.Transaction, error)) (model.Bet, []model.Transaction, error) {
	var (
		b   model.Bet
		txs []model.Transaction
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := load(ctx, tx, `SELECT doc FROM bets WHERE id = ?`, id, "bet", &b); err != nil {
			return err
		}
		var err error
		if txs, err = fn(&b); err != nil {
			return err
		}
		b.ID = id
		doc, err := json.Marshal(b)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE bets SET doc = ? WHERE id = ?`, string(doc), id); err != nil {
			return err
		}
		return insertTransactions(ctx, tx, txs)
	})
	if err != nil {
		return model.Bet{}, nil, err
	}
	return b, txs, nil
}
