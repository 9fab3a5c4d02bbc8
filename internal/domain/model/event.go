package model

import "time"

// Update is an in-match event for one participant, submitted by clients and
// applied asynchronously. Nil fields are left untouched.
type Update struct {
	UpdateID      string       // unique id for idempotency
	MatchID       string       // match the participant belongs to
	ParticipantID string       // participant to patch
	ArrivalTime   *string      // HH:MM
	Goals         *int         // absolute values, not deltas
	Nutmegs       *int
	PostHits      *int
	YellowCards   *int
	OwnGoals      *int
	ForgotKit     *bool
	IsMVP         *bool
	Team          *Team
	Infractions   []Infraction // appended to the recorded list
	TS            time.Time    // event timestamp
}
