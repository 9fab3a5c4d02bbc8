package repository_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/okian/penaltyhub/internal/adapters/repository"
	"github.com/okian/penaltyhub/internal/adapters/repository/repositorytest"
	"github.com/okian/penaltyhub/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStore(t *testing.T) {
	repositorytest.Run(t, func() repository.Store { return repository.NewMemStore() })
}

func TestMemStoreIsolation(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

	Convey("Given a stored match", t, func() {
		s := repository.NewMemStore(repository.WithClock(func() time.Time { return fixed }))
		So(s.CreateMatch(ctx, model.Match{ID: "m1", Participants: []model.Participant{{ID: "p1", Name: "a"}}}), ShouldBeNil)

		Convey("When a caller mutates what it read", func() {
			m, _ := s.GetMatch(ctx, "m1")
			m.Participants[0].Name = "mutated"

			Convey("Then the store is unaffected", func() {
				again, _ := s.GetMatch(ctx, "m1")
				So(again.Participants[0].Name, ShouldEqual, "a")
				So(again.UpdatedAt, ShouldEqual, fixed)
			})
		})

		Convey("When it was created with empty lists", func() {
			So(s.CreateMatch(ctx, model.Match{
				ID:                    "m2",
				Participants:          []model.Participant{},
				Registrations:         []model.Registration{},
				Votes:                 []model.Vote{},
				ConfirmedResult:       []string{},
				EventRules:            []model.Rule{},
				DisabledGlobalRuleIDs: []string{},
			}), ShouldBeNil)
			m, err := s.GetMatch(ctx, "m2")
			So(err, ShouldBeNil)

			Convey("Then the lists encode as empty arrays", func() {
				data, err := json.Marshal(m)
				So(err, ShouldBeNil)
				body := string(data)
				for _, field := range []string{"participants", "registrations", "votes", "confirmed_result", "event_rules", "disabled_global_rule_ids"} {
					So(body, ShouldContainSubstring, `"`+field+`":[]`)
				}
				So(body, ShouldNotContainSubstring, "null")
			})
		})

		Convey("When many goroutines update it at once", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.UpdateMatch(ctx, "m1", func(m *model.Match) error {
						m.Participants[0].Goals++
						return nil
					})
				}()
			}
			wg.Wait()

			Convey("Then no write is lost", func() {
				m, _ := s.GetMatch(ctx, "m1")
				So(m.Participants[0].Goals, ShouldEqual, 50)
			})
		})
	})
}

func BenchmarkMemStoreUpdateMatch(b *testing.B) {
	ctx := context.Background()
	s := repository.NewMemStore()
	ps := make([]model.Participant, 10)
	for i := range ps {
		ps[i] = model.Participant{ID: string(rune('a' + i))}
	}
	_ = s.CreateMatch(ctx, model.Match{ID: "m1", Participants: ps})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = s.UpdateMatch(ctx, "m1", func(m *model.Match) error {
				m.Participants[0].Goals++
				return nil
			})
		}
	})
}
