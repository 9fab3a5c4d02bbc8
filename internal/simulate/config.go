package simulate

import (
	"time"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// Config holds configuration for a simulated match.
type Config struct {
	BaseURL       string           // Base URL of the service
	Players       int              // Number of registered players
	Guests        int              // Guests brought by the first player
	Updates       int              // Number of participant updates to submit
	DuplicateRate float64          // Share of updates resent with the same id, 0..1
	Workers       int              // Number of concurrent submitters
	Timeout       time.Duration    // HTTP request timeout
	DrainTimeout  time.Duration    // How long to wait for the update queue to empty
	Allocation    model.Allocation // Fine allocation of the simulated match
	LogFile       string           // Log file for run output
	Verbose       bool             // Enable verbose logging
}

// Update is the wire form of a participant update.
type Update struct {
	UpdateID      string  `json:"update_id"`
	ParticipantID string  `json:"participant_id"`
	ArrivalTime   *string `json:"arrival_time,omitempty"`
	Goals         *int    `json:"goals,omitempty"`
	Nutmegs       *int    `json:"nutmegs,omitempty"`
	PostHits      *int    `json:"post_hits,omitempty"`
	YellowCards   *int    `json:"yellow_cards,omitempty"`
	OwnGoals      *int    `json:"own_goals,omitempty"`
	ForgotKit     *bool   `json:"forgot_kit,omitempty"`
	IsMVP         *bool   `json:"is_mvp,omitempty"`
	TS            string  `json:"ts"`
}

// AckResponse is the reply to an update submission.
type AckResponse struct {
	Status    string `json:"status"`
	UpdateID  string `json:"update_id"`
	Duplicate bool   `json:"duplicate"`
}

// CloseResponse is the reply to closing a match.
type CloseResponse struct {
	Match        model.Match         `json:"match"`
	Transactions []model.Transaction `json:"transactions"`
}

// Stats holds run statistics.
type Stats struct {
	MatchID          string
	UpdatesGenerated int
	UpdatesSubmitted int
	UpdatesAccepted  int
	UpdatesDuplicate int
	UpdatesRejected  int
	UpdatesFailed    int
	Transactions     int
	TotalFines       float64
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
