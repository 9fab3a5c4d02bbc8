package ledger

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// SettleBet closes an open bet in favour of winner. Every other player
// (proposer included) owes the winner an equal share of the monetary value,
// with leftover cents going to the first losers.
// Bets without a monetary value settle with no transactions.
func SettleBet(b model.Bet, winner, ownerID, date string) (model.Bet, []model.Transaction, error) {
	if b.Status != model.BetOpen {
		return b, nil, fmt.Errorf("%w: %s", ErrBetClosed, b.Status)
	}
	players := append([]string{b.Proposer}, b.Participants...)
	if !slices.Contains(players, winner) {
		return b, nil, fmt.Errorf("%w: %q", ErrUnknownWinner, winner)
	}

	losers := make([]string, 0, len(players))
	for _, p := range players {
		if p != winner {
			losers = append(losers, p)
		}
	}

	var txs []model.Transaction
	if b.MonetaryValue.IsPositive() && len(losers) > 0 {
		share := b.MonetaryValue.Div(decimal.NewFromInt(int64(len(losers))))
		exact := make([]decimal.Decimal, len(losers))
		for i := range exact {
			exact[i] = share
		}
		amounts := apportion(b.MonetaryValue.Round(cents), exact)
		for i, l := range losers {
			txs = append(txs, model.Transaction{
				ID:      fmt.Sprintf("bet-%s-%d", b.ID, i),
				OwnerID: ownerID,
				From:    l,
				To:      winner,
				Amount:  amounts[i],
				Reason:  "Bet: " + b.Description,
				Date:    date,
			})
		}
	}

	b.Status = model.BetWon
	b.Winner = winner
	return b, txs, nil
}
