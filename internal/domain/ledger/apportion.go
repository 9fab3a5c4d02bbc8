package ledger

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/okian/penaltyhub/internal/domain/model"
)

var cent = decimal.New(1, -cents)

// apportion rounds exact amounts down to cents and hands the cents still
// missing from total to the largest remainders, earlier entries first on
// ties. The result always adds up to total.
func apportion(total decimal.Decimal, exact []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(exact))
	order := make([]int, len(exact))
	rest := total
	for i, e := range exact {
		out[i] = e.RoundFloor(cents)
		rest = rest.Sub(out[i])
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return exact[b].Sub(out[b]).Cmp(exact[a].Sub(out[a]))
	})
	for _, i := range order {
		if !rest.IsPositive() {
			break
		}
		out[i] = out[i].Add(cent)
		rest = rest.Sub(cent)
	}
	return out
}

// Shares returns what each participant of m owes, keyed by participant id.
// Amounts are in cents and add up to the match total rounded to cents.
func Shares(m model.Match) map[string]decimal.Decimal {
	exact := make([]decimal.Decimal, len(m.Participants))
	total := decimal.Zero
	for i, p := range m.Participants {
		exact[i] = decimal.NewFromFloat(p.FinalAmount)
		total = total.Add(exact[i])
	}

	rounded := apportion(total.Round(cents), exact)
	out := make(map[string]decimal.Decimal, len(rounded))
	for i, p := range m.Participants {
		out[p.ID] = rounded[i]
	}
	return out
}
