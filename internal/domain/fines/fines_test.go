package fines_test

import (
	"math/rand"
	"testing"

	"github.com/okian/penaltyhub/internal/domain/fines"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

func lateRule() model.Rule {
	return model.Rule{
		ID: "late", Variable: model.VarArrivalTime, Operator: model.OpGreater,
		Threshold: model.ClockThreshold(20 * 60), Action: model.ActionAddFixed, ActionValue: 1,
		Description: "late",
	}
}

func roster(n int) []model.Participant {
	ps := make([]model.Participant, n)
	for i := range ps {
		ps[i] = model.Participant{ID: string(rune('a' + i)), Name: string(rune('A' + i)), ArrivalTime: "20:00"}
	}
	return ps
}

func sumFinal(ps []model.Participant) float64 {
	var s float64
	for _, p := range ps {
		s += p.FinalAmount
	}
	return s
}

func TestCalculateScenarios(t *testing.T) {
	Convey("Given a roster of four and a total cost of 40", t, func() {
		ps := roster(4)
		ps[0].ArrivalTime = "20:10"
		in := fines.Input{Participants: ps, TotalCost: 40, Rules: []model.Rule{lateRule()}}

		Convey("When fines go to the fund", func() {
			in.Allocation = model.AllocationFund
			out := fines.Calculate(in)

			Convey("Then the late player pays 20 and the others 10", func() {
				So(len(out), ShouldEqual, 4)
				So(out[0].BaseQuota, ShouldEqual, 10)
				So(out[0].TotalFine, ShouldEqual, 10)
				So(out[0].FinalAmount, ShouldEqual, 20)
				for _, p := range out[1:] {
					So(p.FinalAmount, ShouldEqual, 10)
				}
				So(sumFinal(out), ShouldEqual, 4*10+fines.TotalFines(out))
			})
		})

		Convey("When fines are split among clean players", func() {
			in.Allocation = model.AllocationSplit
			out := fines.Calculate(in)

			Convey("Then clean players get a third of the fine back", func() {
				So(out[0].FinalAmount, ShouldEqual, 20)
				for _, p := range out[1:] {
					So(p.FinalAmount, ShouldAlmostEqual, 6.67, 0.01)
				}
				So(sumFinal(out), ShouldAlmostEqual, 40, 1e-9)
			})
		})
	})

	Convey("Given a nutmeg rule that doubles the quota", t, func() {
		ps := roster(2)
		ps[0].Nutmegs = 1
		rule := model.Rule{
			ID: "tunnel", Variable: model.VarNutmegs, Operator: model.OpGreater,
			Threshold: model.CountThreshold(0), Action: model.ActionMultiplyQuota, ActionValue: 2,
		}

		Convey("When the base share is 15", func() {
			out := fines.Calculate(fines.Input{Participants: ps, TotalCost: 30, Allocation: model.AllocationFund, Rules: []model.Rule{rule}})

			Convey("Then the nutmegged player pays 30", func() {
				So(out[0].FinalAmount, ShouldEqual, 30)
				So(out[1].FinalAmount, ShouldEqual, 15)
			})
		})

		Convey("When the multiplier is below one", func() {
			rule.ActionValue = 0.5
			out := fines.Calculate(fines.Input{Participants: ps, TotalCost: 30, Allocation: model.AllocationFund, Rules: []model.Rule{rule}})

			Convey("Then the player still pays the unmultiplied share", func() {
				So(out[0].TotalFine, ShouldEqual, 0)
				So(out[0].FinalAmount, ShouldEqual, 15)
			})
		})
	})

	Convey("Given an empty roster", t, func() {
		out := fines.Calculate(fines.Input{TotalCost: 40, Allocation: model.AllocationSplit, Rules: rules.Defaults()})

		Convey("Then the result should be empty", func() {
			So(out, ShouldNotBeNil)
			So(len(out), ShouldEqual, 0)
		})
	})

	Convey("Given every player fined under split", t, func() {
		ps := roster(2)
		ps[0].ForgotKit = true
		ps[1].ForgotKit = true
		kit := rules.Defaults()[1]
		out := fines.Calculate(fines.Input{Participants: ps, TotalCost: 20, Allocation: model.AllocationSplit, Rules: []model.Rule{kit}})

		Convey("Then nothing is redistributed", func() {
			So(out[0].FinalAmount, ShouldEqual, 15)
			So(out[1].FinalAmount, ShouldEqual, 15)
		})
	})

	Convey("Given a huge split discount", t, func() {
		ps := roster(2)
		ps[0].ArrivalTime = "23:00"
		out := fines.Calculate(fines.Input{Participants: ps, TotalCost: 10, Allocation: model.AllocationSplit, Rules: []model.Rule{lateRule()}})

		Convey("Then the clean player's amount is clamped at zero", func() {
			So(out[0].FinalAmount, ShouldEqual, 5+180)
			So(out[1].FinalAmount, ShouldEqual, 0)
		})
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Given a single participant", t, func() {
		p := model.Participant{ArrivalTime: "20:20", YellowCards: 1}

		Convey("When heavy lateness applies", func() {
			heavy := rules.Defaults()[3]
			heavy.ActionValue = 2
			ev := fines.Evaluate(p, 60, []model.Rule{heavy})

			Convey("Then half the pitch is added regardless of the threshold", func() {
				So(ev.TotalFine, ShouldEqual, 2+30)
				So(ev.Multiplier, ShouldEqual, 1)
			})
		})

		Convey("When arrival is exactly 15 minutes late", func() {
			p.ArrivalTime = "20:15"
			ev := fines.Evaluate(p, 60, []model.Rule{rules.Defaults()[3]})

			Convey("Then heavy lateness does not trigger", func() {
				So(ev.TotalFine, ShouldEqual, 0)
			})
		})

		Convey("When the arrival rule uses another operator", func() {
			r := lateRule()
			r.Operator = model.OpGreaterEqual
			ev := fines.Evaluate(p, 60, []model.Rule{r})

			Convey("Then it never triggers", func() {
				So(ev.TotalFine, ShouldEqual, 0)
			})
		})

		Convey("When the arrival time is malformed", func() {
			p.ArrivalTime = "late"
			ev := fines.Evaluate(p, 60, []model.Rule{lateRule(), rules.Defaults()[3]})

			Convey("Then no time rule triggers", func() {
				So(ev.TotalFine, ShouldEqual, 0)
			})
		})

		Convey("When a count threshold is NaN", func() {
			th, _ := rules.ParseThreshold(model.VarYellowCards, "abc")
			r := model.Rule{ID: "y", Variable: model.VarYellowCards, Operator: model.OpGreater, Threshold: th, Action: model.ActionAddFixed, ActionValue: 2}
			ev := fines.Evaluate(p, 60, []model.Rule{r})

			Convey("Then the rule contributes nothing", func() {
				So(ev.TotalFine, ShouldEqual, 0)
			})
		})

		Convey("When the flag rule operator is not equality", func() {
			p.ForgotKit = true
			p.IsMVP = true
			kit := rules.Defaults()[1]
			kit.Operator = model.OpNotEqual
			mvp := model.Rule{ID: "mvp", Variable: model.VarIsMVP, Operator: model.OpEqual, Threshold: model.FlagThreshold(true), Action: model.ActionAddFixed, ActionValue: 3}
			ev := fines.Evaluate(p, 60, []model.Rule{kit, mvp})

			Convey("Then only the equality rule triggers", func() {
				So(ev.TotalFine, ShouldEqual, 3)
			})
		})

		Convey("When the variable is not evaluated live", func() {
			p.OwnGoals = 4
			r := model.Rule{ID: "og", Variable: model.VarOwnGoals, Operator: model.OpGreater, Threshold: model.CountThreshold(0), Action: model.ActionAddFixed, ActionValue: 9}
			ev := fines.Evaluate(p, 60, []model.Rule{r})

			Convey("Then it contributes nothing", func() {
				So(ev.TotalFine, ShouldEqual, 0)
			})
		})

		Convey("When infractions are recorded", func() {
			p.ArrivalTime = "20:00"
			p.YellowCards = 0
			custom := model.Rule{ID: "custom", Variable: model.VarCustom, Operator: model.OpEqual, Threshold: model.CountThreshold(1), Action: model.ActionAddFixed, ActionValue: 4}
			double := model.Rule{ID: "double", Variable: model.VarCustom, Operator: model.OpEqual, Threshold: model.CountThreshold(1), Action: model.ActionMultiplyQuota, ActionValue: 3}
			half := model.Rule{ID: "half", Variable: model.VarCustom, Operator: model.OpEqual, Threshold: model.CountThreshold(1), Action: model.ActionHalfFieldPenalty, ActionValue: 1}
			p.Infractions = []model.Infraction{
				{RuleID: "custom", Quantity: 2, CalculatedAmount: 8},
				{RuleID: "double", Quantity: 1},
				{RuleID: "half", Quantity: 1, CalculatedAmount: 99},
				{RuleID: "gone", Quantity: 1, CalculatedAmount: 50},
			}
			ev := fines.Evaluate(p, 60, []model.Rule{custom, double, half})

			Convey("Then known rules apply their action and unknown ones are skipped", func() {
				So(ev.TotalFine, ShouldEqual, 8+1+30)
				So(ev.Multiplier, ShouldEqual, 3)
			})
		})
	})
}

func TestEffectiveRules(t *testing.T) {
	Convey("Given global and event rules", t, func() {
		global := rules.Defaults()
		extra := model.Rule{ID: "extra", Variable: model.VarGoalCount}

		Convey("When a global rule is disabled for the match", func() {
			eff := fines.EffectiveRules(global, []string{"forgot_kit"}, []model.Rule{extra})

			Convey("Then it is excluded and event rules are appended", func() {
				So(len(eff), ShouldEqual, len(global))
				for _, r := range eff {
					So(r.ID, ShouldNotEqual, "forgot_kit")
				}
				So(eff[len(eff)-1].ID, ShouldEqual, "extra")
			})
		})

		Convey("When the global catalogue changes after resolution", func() {
			eff := fines.EffectiveRules(global, nil, nil)
			global[0].ActionValue = 100

			Convey("Then the snapshot is unaffected", func() {
				So(eff[0].ActionValue, ShouldEqual, 1)
			})
		})
	})
}

func TestProperties(t *testing.T) {
	Convey("Given random rosters and the default rules", t, func() {
		rng := rand.New(rand.NewSource(7))
		allRules := append(rules.Defaults(), model.Rule{
			ID: "cheap", Variable: model.VarNutmegs, Operator: model.OpGreater,
			Threshold: model.CountThreshold(1), Action: model.ActionMultiplyQuota, ActionValue: 0.25,
		})

		for round := 0; round < 200; round++ {
			n := rng.Intn(12)
			ps := make([]model.Participant, n)
			for i := range ps {
				ps[i] = model.Participant{
					ID:          string(rune('a' + i)),
					ArrivalTime: model.FormatClock(19*60 + 30 + rng.Intn(60)),
					Nutmegs:     rng.Intn(3),
					YellowCards: rng.Intn(2),
					ForgotKit:   rng.Intn(4) == 0,
				}
			}
			cost := float64(rng.Intn(200) + 1)
			for _, alloc := range []model.Allocation{model.AllocationFund, model.AllocationSplit} {
				in := fines.Input{Participants: ps, TotalCost: cost, Allocation: alloc, Rules: allRules}
				out := fines.Calculate(in)
				again := fines.Calculate(in)

				So(again, ShouldResemble, out)
				for _, p := range out {
					So(p.FinalAmount, ShouldBeGreaterThanOrEqualTo, 0)
					So(p.TotalFine, ShouldBeGreaterThanOrEqualTo, 0)
				}
				if n == 0 {
					continue
				}
				base := cost / float64(n)
				if alloc == model.AllocationFund {
					So(sumFinal(out), ShouldAlmostEqual, float64(n)*base+fines.TotalFines(out), 1e-6)
					continue
				}
				clean := 0
				for _, p := range out {
					if p.TotalFine == 0 {
						clean++
					}
				}
				// a discount larger than the base share is clamped at zero
				if clean > 0 && fines.TotalFines(out)/float64(clean) <= base {
					So(sumFinal(out), ShouldAlmostEqual, cost, 1e-6)
				}
			}
		}
	})
}
