// Package repositorytest holds the behaviour every repository.Store must
// share, run against each implementation from its own tests.
package repositorytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/penaltyhub/internal/adapters/repository"
	"github.com/okian/penaltyhub/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rule(id string, value float64) model.Rule {
	return model.Rule{
		ID:          id,
		Variable:    model.VarYellowCards,
		Operator:    model.OpGreater,
		Threshold:   model.CountThreshold(0),
		Action:      model.ActionAddFixed,
		ActionValue: value,
		Description: id,
	}
}

func match(id, date string) model.Match {
	return model.Match{
		ID:             id,
		Name:           "match " + id,
		Date:           date,
		Time:           "20:00",
		TotalCost:      40,
		Status:         model.StatusOpen,
		Organizer:      "org",
		FineAllocation: model.AllocationFund,
		Participants: []model.Participant{
			{ID: "u1", UserID: "u1", Name: "org", ArrivalTime: "20:00", Infractions: []model.Infraction{}},
			{ID: "u2", UserID: "u2", Name: "bea", ArrivalTime: "20:00", Infractions: []model.Infraction{}},
		},
		EventRules: []model.Rule{rule("event", 1)},
	}
}

// Run exercises a fresh store from newStore in every scenario.
func Run(t *testing.T, newStore func() repository.Store) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := newStore()
		Reset(func() { _ = s.Close() })

		Convey("When rules are created, replaced and deleted", func() {
			So(s.CreateRule(ctx, rule("a", 1)), ShouldBeNil)
			So(s.CreateRule(ctx, rule("b", 2)), ShouldBeNil)
			So(s.CreateRule(ctx, rule("c", 3)), ShouldBeNil)
			dup := s.CreateRule(ctx, rule("a", 9))
			So(s.ReplaceRule(ctx, "b", rule("b2", 5)), ShouldBeNil)
			So(s.DeleteRule(ctx, "a"), ShouldBeNil)
			missing := s.DeleteRule(ctx, "a")

			Convey("Then the catalogue keeps order and reports conflicts", func() {
				So(errors.Is(dup, repository.ErrConflict), ShouldBeTrue)
				So(errors.Is(missing, repository.ErrNotFound), ShouldBeTrue)
				rs, err := s.ListRules(ctx)
				So(err, ShouldBeNil)
				So(len(rs), ShouldEqual, 2)
				So(rs[0].ID, ShouldEqual, "b2")
				So(rs[0].ActionValue, ShouldEqual, 5)
				So(rs[0].Threshold, ShouldResemble, model.CountThreshold(0))
				So(rs[1].ID, ShouldEqual, "c")

				_, err = s.GetRule(ctx, "b")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When matches are stored", func() {
			So(s.CreateMatch(ctx, match("old", "2026-10-01")), ShouldBeNil)
			So(s.CreateMatch(ctx, match("new", "2026-10-15")), ShouldBeNil)
			dup := s.CreateMatch(ctx, match("new", "2026-10-15"))

			Convey("Then they list newest first and round trip intact", func() {
				So(errors.Is(dup, repository.ErrConflict), ShouldBeTrue)
				ms, err := s.ListMatches(ctx)
				So(err, ShouldBeNil)
				So(len(ms), ShouldEqual, 2)
				So(ms[0].ID, ShouldEqual, "new")

				got, err := s.GetMatch(ctx, "old")
				So(err, ShouldBeNil)
				So(got.Participants[1].Name, ShouldEqual, "bea")
				So(got.EventRules[0].Threshold, ShouldResemble, model.CountThreshold(0))
				So(got.CreatedAt.IsZero(), ShouldBeFalse)

				_, err = s.GetMatch(ctx, "nope")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And an update that fails leaves the match unchanged", func() {
				boom := errors.New("boom")
				_, err := s.UpdateMatch(ctx, "old", func(m *model.Match) error {
					m.Name = "changed"
					return boom
				})
				So(errors.Is(err, boom), ShouldBeTrue)
				got, _ := s.GetMatch(ctx, "old")
				So(got.Name, ShouldEqual, "match old")
			})

			Convey("And a successful update is saved", func() {
				updated, err := s.UpdateMatch(ctx, "old", func(m *model.Match) error {
					m.Participants[1].Goals = 2
					return nil
				})
				So(err, ShouldBeNil)
				So(updated.Participants[1].Goals, ShouldEqual, 2)
				got, _ := s.GetMatch(ctx, "old")
				So(got.Participants[1].Goals, ShouldEqual, 2)
			})

			Convey("And closing appends its transactions", func() {
				closed, txs, err := s.CloseMatch(ctx, "old", func(m *model.Match) ([]model.Transaction, error) {
					m.Status = model.StatusClosed
					return []model.Transaction{
						{ID: "m-old-u2", From: "bea", To: "org", Amount: decimal.RequireFromString("12.34")},
					}, nil
				})
				So(err, ShouldBeNil)
				So(closed.Status, ShouldEqual, model.StatusClosed)
				So(len(txs), ShouldEqual, 1)

				all, err := s.ListTransactions(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 1)
				So(all[0].Amount.String(), ShouldEqual, "12.34")

				paid, err := s.MarkPaid(ctx, "m-old-u2")
				So(err, ShouldBeNil)
				So(paid.IsPaid, ShouldBeTrue)
				_, err = s.MarkPaid(ctx, "m-old-u2")
				So(err, ShouldBeNil)
				_, err = s.MarkPaid(ctx, "missing")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				_, _, err = s.CloseMatch(ctx, "new", func(m *model.Match) ([]model.Transaction, error) {
					return []model.Transaction{{ID: "m-old-u2", Amount: decimal.Zero}}, nil
				})
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
			})
		})

		Convey("When a bet is created and settled", func() {
			bet := model.Bet{ID: "b1", Proposer: "a", Participants: []string{"b"}, MonetaryValue: decimal.NewFromInt(4), Status: model.BetOpen}
			So(s.CreateBet(ctx, bet), ShouldBeNil)
			settled, txs, err := s.SettleBet(ctx, "b1", func(b *model.Bet) ([]model.Transaction, error) {
				b.Status = model.BetWon
				b.Winner = "b"
				return []model.Transaction{{ID: "bet-b1-0", From: "a", To: "b", Amount: decimal.NewFromInt(4), Date: time.Now().Format(time.DateOnly)}}, nil
			})

			Convey("Then the bet and its debt are stored together", func() {
				So(err, ShouldBeNil)
				So(settled.Status, ShouldEqual, model.BetWon)
				So(len(txs), ShouldEqual, 1)
				got, _ := s.GetBet(ctx, "b1")
				So(got.Winner, ShouldEqual, "b")
				bets, _ := s.ListBets(ctx)
				So(len(bets), ShouldEqual, 1)
				all, _ := s.ListTransactions(ctx)
				So(len(all), ShouldEqual, 1)
				So(errors.Is(s.CreateBet(ctx, bet), repository.ErrConflict), ShouldBeTrue)
			})
		})
	})
}
