// Package stats derives per-player statistics from match history and the
// ledger. Results are recomputed on demand and never stored.
package stats

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// Titles, checked in order by Title.
const (
	TitleFuoriclasse    = "Fuoriclasse"
	TitleBidone         = "Bidone d'Oro"
	TitleBomber         = "Bomber"
	TitleBancomat       = "Bancomat"
	TitleProfessionista = "Professionista"
	TitleNovizio        = "Novizio"
)

const (
	percent = 100
	// fines above this per appearance drive reliability to zero
	reliabilityFineUnit = 5
)

// Compute returns one entry per name, in input order.
func Compute(names []string, matches []model.Match, ledger []model.Transaction) []model.UserStats {
	out := make([]model.UserStats, len(names))
	for i, name := range names {
		out[i] = computeOne(name, matches, ledger)
	}
	return out
}

func computeOne(name string, matches []model.Match, ledger []model.Transaction) model.UserStats {
	s := model.UserStats{Name: name, Nickname: name}
	wins := 0

	for i := range matches {
		m := &matches[i]
		p, ok := findByName(m.Participants, name)
		if !ok {
			continue
		}
		s.Appearances++
		s.TotalPaid += p.FinalAmount
		s.TotalFines += p.TotalFine
		s.TotalGoals += p.Goals

		if won(m, p.Team) {
			wins++
		}

		mvp, lvp := votesFor(m.Votes, name)
		if mvp > lvp && mvp > 0 {
			s.MVPCount++
		}
		if lvp > mvp && lvp > 0 {
			s.LVPCount++
		}
	}

	if s.Appearances > 0 {
		apps := float64(s.Appearances)
		s.WinRate = percent * float64(wins) / apps
		s.WeightedFineAverage = s.TotalFines / apps
		s.ReliabilityScore = percent - math.Min(percent, s.TotalFines/(apps*reliabilityFineUnit)*percent)
	} else {
		s.ReliabilityScore = percent
	}
	if len(matches) > 0 {
		s.AttendanceRate = float64(s.Appearances) / float64(len(matches)) * percent
	}
	s.NetBalance = NetBalance(name, ledger).InexactFloat64()
	s.Title = Title(s)
	return s
}

func findByName(ps []model.Participant, name string) (model.Participant, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return model.Participant{}, false
}

// won needs both scores and a team tag.
func won(m *model.Match, team model.Team) bool {
	if m.ScoreA == nil || m.ScoreB == nil {
		return false
	}
	switch team {
	case model.TeamA:
		return *m.ScoreA > *m.ScoreB
	case model.TeamB:
		return *m.ScoreB > *m.ScoreA
	default:
		return false
	}
}

func votesFor(votes []model.Vote, name string) (mvp, lvp int) {
	for _, v := range votes {
		if v.MVPID == name {
			mvp++
		}
		if v.LVPID == name {
			lvp++
		}
	}
	return mvp, lvp
}

// NetBalance sums unpaid transactions: credit as receiver, debit as payer.
func NetBalance(name string, ledger []model.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, t := range ledger {
		if t.IsPaid {
			continue
		}
		if t.To == name {
			balance = balance.Add(t.Amount)
		}
		if t.From == name {
			balance = balance.Sub(t.Amount)
		}
	}
	return balance
}

// Title picks a descriptive label; the first matching rule wins.
func Title(s model.UserStats) string {
	switch {
	case s.MVPCount > 5:
		return TitleFuoriclasse
	case s.LVPCount > 5:
		return TitleBidone
	case s.TotalGoals > 20:
		return TitleBomber
	case s.TotalFines > 100:
		return TitleBancomat
	case s.Appearances > 10 && s.TotalFines == 0:
		return TitleProfessionista
	default:
		return TitleNovizio
	}
}
