package session_test

import (
	"errors"
	"testing"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
	"github.com/okian/penaltyhub/internal/domain/session"
	"github.com/okian/penaltyhub/internal/domain/teams"
	. "github.com/smartystreets/goconvey/convey"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func newMatch() model.Match {
	return model.Match{
		ID:             "m1",
		Name:           "Thursday",
		Time:           "20:00",
		TotalCost:      40,
		MatchType:      2,
		Organizer:      "Org",
		Status:         model.StatusRegistration,
		FineAllocation: model.AllocationFund,
	}
}

func register(m model.Match, regs ...model.Registration) model.Match {
	for _, r := range regs {
		var err error
		m, err = session.Register(m, r)
		So(err, ShouldBeNil)
	}
	return m
}

func TestStart(t *testing.T) {
	Convey("Given a five-a-side for two per team", t, func() {
		m := newMatch()

		Convey("When registrations bring guests beyond capacity", func() {
			m = register(m,
				model.Registration{UserID: "u1", Name: "Org", Nickname: "org", Guests: 1},
				model.Registration{UserID: "u2", Name: "Bea", Nickname: "bea", Guests: 5},
				model.Registration{UserID: "u3", Name: "Cy", Nickname: "cy"},
			)
			started, err := session.Start(m, rules.Defaults())

			Convey("Then the roster is capped in registration order", func() {
				So(err, ShouldBeNil)
				So(started.Status, ShouldEqual, model.StatusOpen)
				So(len(started.Participants), ShouldEqual, 4)
				So(started.Participants[0].ID, ShouldEqual, "u1")
				So(started.Participants[1].ID, ShouldEqual, "guest-u1-0")
				So(started.Participants[1].Name, ShouldEqual, "Ospite di org")
				So(started.Participants[1].IsGuest(), ShouldBeTrue)
				So(started.Participants[2].ID, ShouldEqual, "u2")
				So(started.Participants[3].ID, ShouldEqual, "guest-u2-0")
				So(*started.ScoreA, ShouldEqual, 0)
			})

			Convey("And everyone starts on time at the base share", func() {
				for _, p := range started.Participants {
					So(p.ArrivalTime, ShouldEqual, "20:00")
					So(p.FinalAmount, ShouldEqual, 10)
				}
				So(len(started.RuleSnapshot), ShouldEqual, 5)
			})

			Convey("And registering again is refused", func() {
				_, err := session.Register(started, model.Registration{UserID: "u9"})
				So(errors.Is(err, session.ErrWrongStatus), ShouldBeTrue)
			})
		})

		Convey("When a registrant changes their guest count", func() {
			m = register(m,
				model.Registration{UserID: "u1", Name: "Org", Guests: 3},
				model.Registration{UserID: "u1", Name: "Org", Guests: 1},
			)

			Convey("Then the registration is updated, not duplicated", func() {
				So(len(m.Registrations), ShouldEqual, 1)
				So(m.Registrations[0].Guests, ShouldEqual, 1)
			})
		})
	})
}

func startedMatch() model.Match {
	m := newMatch()
	m = register(m,
		model.Registration{UserID: "u1", Name: "Org"},
		model.Registration{UserID: "u2", Name: "Bea"},
		model.Registration{UserID: "u3", Name: "Cy", Nickname: "cy", Guests: 1},
	)
	m, err := session.Start(m, rules.Defaults())
	So(err, ShouldBeNil)
	return m
}

func TestUpdates(t *testing.T) {
	Convey("Given a live match", t, func() {
		m := startedMatch()
		global := rules.Defaults()

		Convey("When a player arrives ten minutes late", func() {
			m, err := session.ApplyUpdate(m, model.Update{ParticipantID: "u2", ArrivalTime: strp("20:10")}, global)

			Convey("Then their fine follows the per minute rule", func() {
				So(err, ShouldBeNil)
				p, _ := m.Participant("u2")
				So(p.TotalFine, ShouldEqual, 10)
				So(p.FinalAmount, ShouldEqual, 20)
			})

			Convey("And disabling the rule for this match removes the fine", func() {
				m, err = session.ToggleGlobalRule(m, "late_arrival", global)
				So(err, ShouldBeNil)
				p, _ := m.Participant("u2")
				So(p.TotalFine, ShouldEqual, 0)

				m, err = session.ToggleGlobalRule(m, "late_arrival", global)
				So(err, ShouldBeNil)
				p, _ = m.Participant("u2")
				So(p.TotalFine, ShouldEqual, 10)
			})
		})

		Convey("When an event rule is added", func() {
			goal := model.Rule{ID: "mvp_pays", Variable: model.VarIsMVP, Operator: model.OpEqual, Threshold: model.FlagThreshold(true), Action: model.ActionAddFixed, ActionValue: 3}
			m, _ = session.AddEventRule(m, goal, global)
			m, err := session.ApplyUpdate(m, model.Update{ParticipantID: "u3", IsMVP: new(bool)}, global)
			So(err, ShouldBeNil)
			yes := true
			m, err = session.ApplyUpdate(m, model.Update{ParticipantID: "u3", IsMVP: &yes}, global)

			Convey("Then it applies to this match", func() {
				So(err, ShouldBeNil)
				p, _ := m.Participant("u3")
				So(p.TotalFine, ShouldEqual, 3)
			})
		})

		Convey("When the update is invalid", func() {
			_, errMissing := session.ApplyUpdate(m, model.Update{ParticipantID: "nobody"}, global)
			_, errClock := session.ApplyUpdate(m, model.Update{ParticipantID: "u2", ArrivalTime: strp("soon")}, global)
			neg, errNeg := session.ApplyUpdate(m, model.Update{ParticipantID: "u2", Goals: intp(-3)}, global)

			Convey("Then it is rejected or clamped", func() {
				So(errors.Is(errMissing, session.ErrNotParticipant), ShouldBeTrue)
				So(errors.Is(errClock, model.ErrInvalidClock), ShouldBeTrue)
				So(errNeg, ShouldBeNil)
				p, _ := neg.Participant("u2")
				So(p.Goals, ShouldEqual, 0)
			})
		})

		Convey("When the input match is mutated by the caller afterwards", func() {
			updated, err := session.ApplyUpdate(m, model.Update{ParticipantID: "u2", Nutmegs: intp(1)}, global)
			So(err, ShouldBeNil)

			Convey("Then the original is not shared", func() {
				orig, _ := m.Participant("u2")
				next, _ := updated.Participant("u2")
				So(orig.Nutmegs, ShouldEqual, 0)
				So(next.Nutmegs, ShouldEqual, 1)
			})
		})
	})
}

func TestClosing(t *testing.T) {
	Convey("Given a live match with one guest", t, func() {
		m := startedMatch()
		global := rules.Defaults()
		m, _ = session.ApplyUpdate(m, model.Update{ParticipantID: "u2", ArrivalTime: strp("20:10")}, global)
		m, _ = session.SetScore(m, 3, 2)
		m, _ = session.OpenVoting(m)

		Convey("When nobody has confirmed", func() {
			_, _, err := session.Close(m, global, "owner")

			Convey("Then closing is refused", func() {
				So(errors.Is(err, session.ErrNotConfirmed), ShouldBeTrue)
			})
		})

		Convey("When everyone confirmed but one did not vote", func() {
			for _, u := range []string{"u1", "u2", "u3"} {
				m, _ = session.ConfirmResult(m, u)
			}
			m, _ = session.ConfirmResult(m, "u1")
			m, _ = session.CastVote(m, model.Vote{VoterID: "u1", MVPID: "Bea", LVPID: "Cy"})
			m, _ = session.CastVote(m, model.Vote{VoterID: "u2", MVPID: "Org", LVPID: "Cy"})
			_, _, err := session.Close(m, global, "owner")

			Convey("Then closing is refused for missing votes", func() {
				So(len(m.ConfirmedResult), ShouldEqual, 3)
				So(errors.Is(err, session.ErrNotVoted), ShouldBeTrue)
			})

			Convey("And once the last vote is in the match closes and settles", func() {
				m, err = session.CastVote(m, model.Vote{VoterID: "u3", MVPID: "Bea", LVPID: "Org"})
				So(err, ShouldBeNil)
				m, err = session.CastVote(m, model.Vote{VoterID: "u3", MVPID: "Bea", LVPID: "Bea"})
				So(err, ShouldBeNil)
				So(len(m.Votes), ShouldEqual, 3)

				closed, txs, err := session.Close(m, global, "owner")
				So(err, ShouldBeNil)
				So(closed.Status, ShouldEqual, model.StatusClosed)
				// three non organizer participants plus the fund entry
				So(len(txs), ShouldEqual, 4)
				So(txs[3].To, ShouldEqual, model.FundAccount)

				frozen := session.Recalculate(closed, nil)
				So(frozen.Participants, ShouldResemble, closed.Participants)

				_, err = session.ApplyUpdate(closed, model.Update{ParticipantID: "u2"}, global)
				So(errors.Is(err, session.ErrWrongStatus), ShouldBeTrue)
			})
		})

		Convey("When voting for someone outside the match", func() {
			_, errVoter := session.CastVote(m, model.Vote{VoterID: "stranger", MVPID: "Bea", LVPID: "Cy"})
			_, errPick := session.CastVote(m, model.Vote{VoterID: "u1", MVPID: "Nobody", LVPID: "Cy"})
			_, errGuest := session.ConfirmResult(m, "guest-u3-0")

			Convey("Then the vote is rejected", func() {
				So(errors.Is(errVoter, session.ErrNotParticipant), ShouldBeTrue)
				So(errors.Is(errPick, session.ErrNotParticipant), ShouldBeTrue)
				So(errors.Is(errGuest, session.ErrNotParticipant), ShouldBeTrue)
			})
		})

		Convey("When a negative score is set", func() {
			_, err := session.SetScore(m, -1, 0)
			So(errors.Is(err, session.ErrInvalidScore), ShouldBeTrue)
		})
	})
}

func TestAssignTeams(t *testing.T) {
	Convey("Given a live match of four", t, func() {
		m := startedMatch()
		res := teams.Balance(m.Participants, []model.UserStats{{Name: "Cy", MVPCount: 3}})

		Convey("When the balance is applied", func() {
			m, err := session.AssignTeams(m, res)

			Convey("Then the strongest player leads team A and roster order is kept", func() {
				So(err, ShouldBeNil)
				So(m.Participants[0].ID, ShouldEqual, "u1")
				cy, _ := m.Participant("u3")
				So(cy.Team, ShouldEqual, model.TeamA)
				a := 0
				for _, p := range m.Participants {
					if p.Team == model.TeamA {
						a++
					}
				}
				So(a, ShouldEqual, 2)
			})
		})

		Convey("When the match has not started", func() {
			_, err := session.AssignTeams(newMatch(), res)
			So(errors.Is(err, session.ErrWrongStatus), ShouldBeTrue)
		})
	})
}
