// Package teams splits a roster into two sides of similar strength.
package teams

import (
	"sort"

	"github.com/okian/penaltyhub/internal/domain/model"
)

const baseSkill = 50

// Result holds both sides. Sizes differ by at most one.
type Result struct {
	TeamA []model.Participant `json:"team_a"`
	TeamB []model.Participant `json:"team_b"`
}

// Skill scores a player from their history. Players without stats get the base.
func Skill(s *model.UserStats) float64 {
	if s == nil {
		return baseSkill
	}
	return baseSkill +
		10*float64(s.MVPCount) -
		5*float64(s.LVPCount) +
		s.WinRate/2 +
		float64(s.TotalGoals)/5 +
		float64(s.Appearances)
}

type ranked struct {
	p     model.Participant
	skill float64
}

// Balance sorts the roster by skill, highest first, and deals players out
// alternately: even ranks to A, odd ranks to B. Equal skills keep roster order.
// Stats are matched to participants by name.
func Balance(roster []model.Participant, stats []model.UserStats) Result {
	byName := make(map[string]*model.UserStats, len(stats))
	for i := range stats {
		if _, ok := byName[stats[i].Name]; !ok {
			byName[stats[i].Name] = &stats[i]
		}
	}

	players := make([]ranked, len(roster))
	for i, p := range roster {
		players[i] = ranked{p: p, skill: Skill(byName[p.Name])}
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].skill > players[j].skill
	})

	res := Result{
		TeamA: make([]model.Participant, 0, (len(players)+1)/2),
		TeamB: make([]model.Participant, 0, len(players)/2),
	}
	for rank, r := range players {
		if rank%2 == 0 {
			r.p.Team = model.TeamA
			res.TeamA = append(res.TeamA, r.p)
		} else {
			r.p.Team = model.TeamB
			res.TeamB = append(res.TeamB, r.p)
		}
	}
	return res
}

// Apply copies team tags from a balance result back onto the roster,
// keeping roster order.
func Apply(roster []model.Participant, res Result) []model.Participant {
	tag := make(map[string]model.Team, len(roster))
	for _, p := range res.TeamA {
		tag[p.ID] = model.TeamA
	}
	for _, p := range res.TeamB {
		tag[p.ID] = model.TeamB
	}
	out := make([]model.Participant, len(roster))
	for i, p := range roster {
		if t, ok := tag[p.ID]; ok {
			p.Team = t
		}
		out[i] = p
	}
	return out
}
