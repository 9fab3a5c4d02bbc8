package fines

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// Input is everything a calculation needs. Rules should already be the
// effective set for the match; see EffectiveRules.
type Input struct {
	Participants []model.Participant
	TotalCost    float64
	Allocation   model.Allocation
	Rules        []model.Rule
}

// EffectiveRules resolves the rule set for one match: global rules not
// disabled for it, followed by its event rules. The result is a fresh slice,
// so later edits to the global catalogue do not leak into it.
func EffectiveRules(global []model.Rule, disabledIDs []string, eventRules []model.Rule) []model.Rule {
	disabled := mapset.NewThreadUnsafeSet(disabledIDs...)
	out := make([]model.Rule, 0, len(global)+len(eventRules))
	for _, r := range global {
		if disabled.Contains(r.ID) {
			continue
		}
		out = append(out, r)
	}
	return append(out, eventRules...)
}

// Calculate evaluates every participant and aggregates the final amounts.
// An empty roster yields an empty result.
func Calculate(in Input) []model.Participant {
	n := len(in.Participants)
	if n == 0 {
		return []model.Participant{}
	}
	baseShare := in.TotalCost / float64(n)

	evaluated := make([]Evaluated, n)
	for i, p := range in.Participants {
		evaluated[i] = Evaluated{
			Participant: p,
			Evaluation:  Evaluate(p, in.TotalCost, in.Rules),
		}
	}
	return Aggregate(evaluated, baseShare, in.Allocation)
}

// CalculateMatch runs Calculate for a match against the global catalogue and
// returns the participants along with the rule snapshot that was used.
func CalculateMatch(m model.Match, global []model.Rule) ([]model.Participant, []model.Rule) {
	snapshot := EffectiveRules(global, m.DisabledGlobalRuleIDs, m.EventRules)
	return Calculate(Input{
		Participants: m.Participants,
		TotalCost:    m.TotalCost,
		Allocation:   m.FineAllocation,
		Rules:        snapshot,
	}), snapshot
}
