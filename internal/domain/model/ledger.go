package model

import "github.com/shopspring/decimal"

// FundAccount is the reserved ledger account for the communal fund.
const FundAccount = "FUND"

// Transaction is a debt from one player to another. Amounts are decimals
// rounded to cents.
type Transaction struct {
	ID      string          `json:"id"`
	OwnerID string          `json:"owner_id"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
	Date    string          `json:"date"`
	IsPaid  bool            `json:"is_paid"`
}

// StakeCategory classifies what a bet is played for.
type StakeCategory string

// Stake categories.
const (
	StakeMoney       StakeCategory = "money"
	StakeDrink       StakeCategory = "drink"
	StakeFood        StakeCategory = "food"
	StakeHumiliation StakeCategory = "humiliation"
	StakeOther       StakeCategory = "other"
	StakeFund        StakeCategory = "fund"
)

// BetStatus is the lifecycle of a bet.
type BetStatus string

// Bet statuses.
const (
	BetOpen      BetStatus = "open"
	BetWon       BetStatus = "won"
	BetLost      BetStatus = "lost"
	BetCancelled BetStatus = "cancelled"
)

// Bet is a side wager between players.
type Bet struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Description   string          `json:"description"`
	Proposer      string          `json:"proposer"`
	Participants  []string        `json:"participants"`
	Stake         string          `json:"stake"`
	StakeCategory StakeCategory   `json:"stake_category"`
	MonetaryValue decimal.Decimal `json:"monetary_value"`
	Spiciness     int             `json:"spiciness"`
	Status        BetStatus       `json:"status"`
	Winner        string          `json:"winner,omitempty"`
}
