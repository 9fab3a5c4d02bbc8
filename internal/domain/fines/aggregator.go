package fines

import (
	"math"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// Evaluated pairs a participant with its evaluation.
type Evaluated struct {
	Participant model.Participant
	Evaluation
}

// Aggregate turns evaluations into final amounts. Multipliers become a
// monetary delta on the base share (never negative), then fines are either
// kept by the fined players (fund) or redistributed as a discount to clean
// players (split). Final amounts are clamped at zero.
func Aggregate(evaluated []Evaluated, baseShare float64, alloc model.Allocation) []model.Participant {
	out := make([]model.Participant, len(evaluated))
	if len(evaluated) == 0 {
		return out
	}

	var totalMatchFines float64
	clean := 0
	for i, e := range evaluated {
		p := e.Participant
		multiplierFine := math.Max(0, baseShare*e.Multiplier-baseShare)
		p.BaseQuota = baseShare
		p.TotalFine = e.TotalFine + multiplierFine
		totalMatchFines += p.TotalFine
		if p.TotalFine == 0 {
			clean++
		}
		out[i] = p
	}

	var discount float64
	if alloc == model.AllocationSplit && clean > 0 {
		discount = totalMatchFines / float64(clean)
	}

	for i := range out {
		amount := baseShare + out[i].TotalFine
		if alloc == model.AllocationSplit && out[i].TotalFine == 0 {
			amount -= discount
		}
		out[i].FinalAmount = math.Max(0, amount)
	}
	return out
}

// TotalFines sums TotalFine across the roster.
func TotalFines(participants []model.Participant) float64 {
	var sum float64
	for _, p := range participants {
		sum += p.TotalFine
	}
	return sum
}
