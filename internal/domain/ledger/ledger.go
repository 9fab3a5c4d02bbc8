// Package ledger turns closed matches and settled bets into debts between
// players, and summarizes what is still owed.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/okian/penaltyhub/internal/domain/fines"
	"github.com/okian/penaltyhub/internal/domain/model"
)

const cents = 2

// Summary is a player's position over unpaid transactions.
type Summary struct {
	Name   string          `json:"name"`
	Debt   decimal.Decimal `json:"debt"`
	Credit decimal.Decimal `json:"credit"`
	Net    decimal.Decimal `json:"net"`
}

// Amount converts an engine amount to a ledger amount rounded to cents.
func Amount(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(cents)
}

// Settle creates the debts of a closed match: every participant other than
// the organizer owes the organizer their share (see Shares). Under fund
// allocation the organizer also owes the collected fines to the fund.
func Settle(m model.Match, ownerID string) []model.Transaction {
	shares := Shares(m)
	txs := make([]model.Transaction, 0, len(m.Participants)+1)
	for _, p := range m.Participants {
		if p.Name == m.Organizer {
			continue
		}
		txs = append(txs, model.Transaction{
			ID:      fmt.Sprintf("m-%s-%s", m.ID, p.ID),
			OwnerID: ownerID,
			From:    p.Name,
			To:      m.Organizer,
			Amount:  shares[p.ID],
			Reason:  "Match: " + m.Name,
			Date:    m.Date,
		})
	}

	if m.FineAllocation == model.AllocationFund {
		total := Amount(fines.TotalFines(m.Participants))
		if total.IsPositive() {
			txs = append(txs, model.Transaction{
				ID:      "fund-" + m.ID,
				OwnerID: ownerID,
				From:    m.Organizer,
				To:      model.FundAccount,
				Amount:  total,
				Reason:  "Fines: " + m.Name,
				Date:    m.Date,
			})
		}
	}
	return txs
}

// Balance summarizes unpaid transactions involving name.
func Balance(name string, txs []model.Transaction) Summary {
	s := Summary{Name: name, Debt: decimal.Zero, Credit: decimal.Zero}
	for _, t := range txs {
		if t.IsPaid {
			continue
		}
		if t.From == name {
			s.Debt = s.Debt.Add(t.Amount)
		}
		if t.To == name {
			s.Credit = s.Credit.Add(t.Amount)
		}
	}
	s.Net = s.Credit.Sub(s.Debt)
	return s
}

// FundBalance is the sum of unpaid transactions owed to the fund.
func FundBalance(txs []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if t.To == model.FundAccount && !t.IsPaid {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Outstanding returns unpaid transactions involving name, in ledger order.
func Outstanding(name string, txs []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0)
	for _, t := range txs {
		if !t.IsPaid && (t.From == name || t.To == name) {
			out = append(out, t)
		}
	}
	return out
}
