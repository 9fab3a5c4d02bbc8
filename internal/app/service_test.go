package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	service "github.com/okian/penaltyhub/internal/app"
	"github.com/okian/penaltyhub/internal/adapters/repository"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
	"github.com/okian/penaltyhub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2026, 10, 17, 19, 0, 0, 0, time.UTC)

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
		service.WithDedupeSize(100),
		service.WithRuleCatalogue(rules.Defaults()),
		service.WithClock(func() time.Time { return fixedNow }),
	}
	return service.New(append(base, opts...)...)
}

func fp(f float64) *float64 { return &f }

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["dedupeSize"], ShouldEqual, 50000)
			So(svc.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithOwnerID("club"),
			service.WithDefaultAllocation(model.AllocationFund),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50_000)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		svc := newService()
		ctx := context.Background()

		Convey("Then operations are refused", func() {
			_, err := svc.ListRules(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.CreateMatch(ctx, service.MatchDraft{Name: "x", Time: "20:00"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When it is started", func() {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the catalogue is seeded once", func() {
				rs, err := svc.ListRules(ctx)
				So(err, ShouldBeNil)
				So(len(rs), ShouldEqual, len(rules.Defaults()))
				So(rs[0].OwnerID, ShouldEqual, "penaltyhub")

				So(svc.Start(ctx), ShouldBeNil)
				rs, _ = svc.ListRules(ctx)
				So(len(rs), ShouldEqual, len(rules.Defaults()))
			})

			Convey("And stats report it running", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["totalRules"], ShouldEqual, len(rules.Defaults()))
				So(stats["queueLength"], ShouldEqual, 0)
			})
		})
	})

	Convey("Given a started service", t, func() {
		svc := newService()
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				svc.Stop()
			})
		})
	})

	Convey("Given a store that already holds rules", t, func() {
		store := repository.NewMemStore()
		custom := model.Rule{ID: "own", Variable: model.VarNutmegs, Operator: model.OpGreater, Threshold: model.CountThreshold(0), Action: model.ActionAddFixed, ActionValue: 1, Description: "nutmeg"}
		So(store.CreateRule(context.Background(), custom), ShouldBeNil)
		svc := newService(service.WithStore(store))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the catalogue is not seeded over it", func() {
			rs, err := svc.ListRules(context.Background())
			So(err, ShouldBeNil)
			So(len(rs), ShouldEqual, 1)
			So(rs[0].ID, ShouldEqual, "own")
		})
	})
}

func TestService_Rules(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		nutmeg := rules.Draft{Variable: "nutmegs", Operator: ">", Value: 0, Action: "add_fixed", ActionValue: fp(1), Description: "Tunnel"}

		Convey("When a valid rule is created", func() {
			r, err := svc.CreateRule(ctx, nutmeg)
			So(err, ShouldBeNil)

			Convey("Then it is appended with an id and owner", func() {
				So(r.ID, ShouldNotBeEmpty)
				So(r.OwnerID, ShouldEqual, "penaltyhub")
				rs, _ := svc.ListRules(ctx)
				So(rs[len(rs)-1].ID, ShouldEqual, r.ID)
			})

			Convey("And replacing it keeps its position under a new id", func() {
				nutmeg.ActionValue = fp(2)
				repl, err := svc.ReplaceRule(ctx, r.ID, nutmeg)
				So(err, ShouldBeNil)
				So(repl.ID, ShouldNotEqual, r.ID)
				So(repl.ActionValue, ShouldEqual, 2)
				rs, _ := svc.ListRules(ctx)
				So(rs[len(rs)-1].ID, ShouldEqual, repl.ID)
			})

			Convey("And deleting it removes it", func() {
				So(svc.DeleteRule(ctx, r.ID), ShouldBeNil)
				err := svc.DeleteRule(ctx, r.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a draft is invalid", func() {
			nutmeg.Description = " "
			_, errDesc := svc.CreateRule(ctx, nutmeg)
			_, errMissing := svc.ReplaceRule(ctx, "missing", nutmeg)

			Convey("Then validation and lookup errors come through", func() {
				So(errors.Is(errDesc, rules.ErrEmptyDescription), ShouldBeTrue)
				So(errors.Is(errMissing, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Matches(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService(service.WithDefaultAllocation(model.AllocationFund))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a match is created without date or allocation", func() {
			m, err := svc.CreateMatch(ctx, service.MatchDraft{Name: "Thursday", Time: "20:00", TotalCost: 40, MatchType: 2, Organizer: "Org"})

			Convey("Then defaults fill them in", func() {
				So(err, ShouldBeNil)
				So(m.Date, ShouldEqual, "2026-10-17")
				So(m.FineAllocation, ShouldEqual, model.AllocationFund)
				So(m.Status, ShouldEqual, model.StatusRegistration)
				So(m.CreatedAt.Equal(fixedNow), ShouldBeTrue)
			})

			Convey("And submitting an update before the session starts is refused", func() {
				_, err := svc.SubmitUpdate(ctx, model.Update{MatchID: m.ID, ParticipantID: "u1"})
				So(err, ShouldNotBeNil)
			})

			Convey("And toggling an unknown rule is not found", func() {
				_, err := svc.ToggleGlobalRule(ctx, m.ID, "nope")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a match draft is invalid", func() {
			_, errName := svc.CreateMatch(ctx, service.MatchDraft{Time: "20:00"})
			_, errTime := svc.CreateMatch(ctx, service.MatchDraft{Name: "x", Time: "8pm"})
			_, errDate := svc.CreateMatch(ctx, service.MatchDraft{Name: "x", Time: "20:00", Date: "17/10"})
			_, errCost := svc.CreateMatch(ctx, service.MatchDraft{Name: "x", Time: "20:00", TotalCost: -1})
			_, errAlloc := svc.CreateMatch(ctx, service.MatchDraft{Name: "x", Time: "20:00", FineAllocation: "pub"})

			Convey("Then it is rejected", func() {
				So(errors.Is(errName, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errTime, model.ErrInvalidClock), ShouldBeTrue)
				So(errors.Is(errDate, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errCost, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errAlloc, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the match does not exist", func() {
			_, err := svc.GetMatch(ctx, "missing")
			_, errStart := svc.StartSession(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(errStart, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Bets(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		draft := service.BetDraft{
			Description:   "Cy scores first",
			Proposer:      "Bea",
			Participants:  []string{"Cy", "Org"},
			Stake:         "a round",
			MonetaryValue: decimal.NewFromInt(9),
			Spiciness:     3,
		}

		Convey("When a bet is proposed and settled", func() {
			b, err := svc.CreateBet(ctx, draft)
			So(err, ShouldBeNil)
			So(b.StakeCategory, ShouldEqual, model.StakeOther)

			settled, txs, err := svc.SettleBet(ctx, b.ID, "Cy")

			Convey("Then both losers owe the winner", func() {
				So(err, ShouldBeNil)
				So(settled.Status, ShouldEqual, model.BetWon)
				So(len(txs), ShouldEqual, 2)
				So(txs[0].Amount.String(), ShouldEqual, "4.5")
				So(txs[0].Date, ShouldEqual, "2026-10-17")

				all, _ := svc.ListTransactions(ctx, "Bea")
				So(len(all), ShouldEqual, 1)
			})

			Convey("And settling twice is refused", func() {
				_, _, err := svc.SettleBet(ctx, b.ID, "Cy")
				So(err, ShouldNotBeNil)
				got, _ := svc.GetBet(ctx, b.ID)
				So(got.Winner, ShouldEqual, "Cy")
			})
		})

		Convey("When the draft is invalid", func() {
			repeated := draft
			repeated.Participants = []string{"Cy", "Bea"}
			negative := draft
			negative.MonetaryValue = decimal.NewFromInt(-1)
			alone := draft
			alone.Participants = nil
			spicy := draft
			spicy.Spiciness = 9

			for _, d := range []service.BetDraft{repeated, negative, alone, spicy} {
				_, err := svc.CreateBet(ctx, d)
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			}
			bets, _ := svc.ListBets(ctx)
			So(bets, ShouldBeEmpty)
		})
	})
}
