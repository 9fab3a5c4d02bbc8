package simulate

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/okian/penaltyhub/internal/domain/fines"
	"github.com/okian/penaltyhub/internal/domain/ledger"
	"github.com/okian/penaltyhub/internal/domain/model"
)

// ErrSettlementMismatch is returned when a closed match's transactions do not
// agree with its final amounts.
var ErrSettlementMismatch = errors.New("settlement mismatch")

// verifySettlement checks that every non-organizer owes the organizer
// exactly their final amount in cents and, for fund matches, that the organizer
// forwards the sum of all fines. Guests of one host share a name, so amounts
// are compared per name.
func verifySettlement(res CloseResponse) error {
	m := res.Match
	if m.Status != model.StatusClosed {
		return fmt.Errorf("%w: match is %s", ErrSettlementMismatch, m.Status)
	}

	byFrom := make(map[string]decimal.Decimal, len(res.Transactions))
	var fund *model.Transaction
	for i, t := range res.Transactions {
		if t.To == model.FundAccount {
			fund = &res.Transactions[i]
			continue
		}
		if t.To != m.Organizer {
			return fmt.Errorf("%w: %s pays %s, not the organizer", ErrSettlementMismatch, t.From, t.To)
		}
		byFrom[t.From] = byFrom[t.From].Add(t.Amount)
	}

	shares := ledger.Shares(m)
	owed := make(map[string]decimal.Decimal, len(m.Participants))
	for _, p := range m.Participants {
		if p.Name != m.Organizer {
			owed[p.Name] = owed[p.Name].Add(shares[p.ID])
		}
	}
	if len(owed) != len(byFrom) {
		return fmt.Errorf("%w: %d debtors expected, ledger has %d", ErrSettlementMismatch, len(owed), len(byFrom))
	}
	for name, want := range owed {
		if got := byFrom[name]; !got.Equal(want) {
			return fmt.Errorf("%w: %s owes %s, ledger says %s", ErrSettlementMismatch, name, want, got)
		}
	}

	total := ledger.Amount(fines.TotalFines(m.Participants))
	switch {
	case m.FineAllocation != model.AllocationFund && fund != nil:
		return fmt.Errorf("%w: fund transfer on a %s match", ErrSettlementMismatch, m.FineAllocation)
	case m.FineAllocation == model.AllocationFund && total.IsPositive() && fund == nil:
		return fmt.Errorf("%w: missing fund transfer of %s", ErrSettlementMismatch, total)
	case fund != nil && !fund.Amount.Equal(total):
		return fmt.Errorf("%w: fund transfer %s, fines total %s", ErrSettlementMismatch, fund.Amount, total)
	}
	return nil
}
