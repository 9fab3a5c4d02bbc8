// Package fines computes what each participant of a match owes: per-player
// fines and multipliers from the rule set, then the final payable amount
// under the match's allocation policy.
//
// Everything here is a pure function of its inputs.
package fines

import (
	"math"

	"github.com/okian/penaltyhub/internal/domain/model"
)

const (
	// heavy lateness is measured against a fixed kickoff, not the rule threshold
	heavyLateBaseline = 20 * 60
	heavyLateMinutes  = 15

	halfField = 0.5
)

// Evaluation is one participant's accumulated additive fine and quota multiplier.
type Evaluation struct {
	TotalFine  float64
	Multiplier float64
}

// Evaluate runs both passes for a participant against the effective rules.
// Recorded infractions are looked up first; then every rule condition is
// checked against the participant's current fields.
func Evaluate(p model.Participant, totalCost float64, rules []model.Rule) Evaluation {
	ev := Evaluation{Multiplier: 1}

	byID := make(map[string]model.Rule, len(rules))
	for _, r := range rules {
		if _, dup := byID[r.ID]; !dup {
			byID[r.ID] = r
		}
	}

	for _, inf := range p.Infractions {
		r, ok := byID[inf.RuleID]
		if !ok {
			continue
		}
		switch r.Action {
		case model.ActionMultiplyQuota:
			ev.Multiplier *= r.ActionValue
		case model.ActionHalfFieldPenalty:
			ev.TotalFine += r.ActionValue + halfField*totalCost
		default:
			ev.TotalFine += inf.CalculatedAmount
		}
	}

	for _, r := range rules {
		triggered, scale := condition(p, r)
		if !triggered {
			continue
		}
		switch r.Action {
		case model.ActionAddFixed:
			ev.TotalFine += r.ActionValue * scale
		case model.ActionMultiplyQuota:
			ev.Multiplier *= r.ActionValue
		case model.ActionHalfFieldPenalty:
			ev.TotalFine += r.ActionValue + halfField*totalCost
		}
	}
	return ev
}

// condition reports whether the rule holds for p and the scale factor for
// add_fixed. Scale is minutes late for arrival_time and 1 otherwise.
func condition(p model.Participant, r model.Rule) (bool, float64) {
	switch r.Variable {
	case model.VarArrivalTime:
		if r.Operator != model.OpGreater {
			return false, 1
		}
		arrival, err := model.ParseClock(p.ArrivalTime)
		if err != nil {
			return false, 1
		}
		threshold, ok := r.Threshold.Clock()
		if !ok || arrival <= threshold {
			return false, 1
		}
		return true, float64(arrival - threshold)
	case model.VarRitardoPesante:
		arrival, err := model.ParseClock(p.ArrivalTime)
		if err != nil {
			return false, 1
		}
		return arrival > heavyLateBaseline+heavyLateMinutes, 1
	case model.VarForgotKit:
		return p.ForgotKit && r.Operator == model.OpEqual, 1
	case model.VarIsMVP:
		return p.IsMVP && r.Operator == model.OpEqual, 1
	case model.VarYellowCards:
		return exceeds(p.YellowCards, r.Threshold), 1
	case model.VarNutmegs:
		return exceeds(p.Nutmegs, r.Threshold), 1
	default:
		return false, 1
	}
}

// exceeds is a strict greater-than; a NaN threshold never triggers.
func exceeds(n int, th model.Threshold) bool {
	limit := th.Count()
	if math.IsNaN(limit) {
		return false
	}
	return float64(n) > limit
}
