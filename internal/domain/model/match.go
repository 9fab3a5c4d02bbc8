package model

import (
	"slices"
	"strings"
	"time"
)

// Team tags a participant after balancing.
type Team string

// Teams.
const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

// Allocation decides where collected fines go.
type Allocation string

// Allocation policies.
const (
	AllocationSplit Allocation = "split" // discount for clean players
	AllocationFund  Allocation = "fund"  // routed to the communal fund
)

// Status is the match lifecycle stage.
type Status string

// Match statuses, in lifecycle order.
const (
	StatusRegistration Status = "registration"
	StatusOpen         Status = "open"
	StatusVoting       Status = "voting"
	StatusClosed       Status = "closed"
)

// GuestPrefix marks participant ids created for guests.
const GuestPrefix = "guest-"

// Infraction is a recorded instance of a rule firing for a participant.
type Infraction struct {
	RuleID           string  `json:"rule_id"`
	Quantity         int     `json:"quantity"`
	CalculatedAmount float64 `json:"calculated_amount"`
}

// Participant is a player's record for one match.
type Participant struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id,omitempty"`
	Name        string       `json:"name"`
	ArrivalTime string       `json:"arrival_time"`
	Goals       int          `json:"goals"`
	Nutmegs     int          `json:"nutmegs"`
	PostHits    int          `json:"post_hits"`
	YellowCards int          `json:"yellow_cards"`
	OwnGoals    int          `json:"own_goals"`
	ForgotKit   bool         `json:"forgot_kit"`
	IsMVP       bool         `json:"is_mvp"`
	BaseQuota   float64      `json:"base_quota"`
	TotalFine   float64      `json:"total_fine"`
	FinalAmount float64      `json:"final_amount"`
	Infractions []Infraction `json:"infractions"`
	Team        Team         `json:"team,omitempty"`
}

// IsGuest reports whether the participant was brought by a registrant.
func (p Participant) IsGuest() bool {
	return p.UserID == "" || strings.HasPrefix(p.UserID, GuestPrefix)
}

// Registration is a user's sign-up for a match, optionally with guests.
type Registration struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Nickname  string `json:"nickname"`
	Timestamp int64  `json:"timestamp"`
	Guests    int    `json:"guests"`
}

// Vote is one voter's MVP and LVP pick. Ids are participant names.
type Vote struct {
	VoterID string `json:"voter_id"`
	MVPID   string `json:"mvp_id"`
	LVPID   string `json:"lvp_id"`
}

// Match owns its participants exclusively.
type Match struct {
	ID                    string         `json:"id"`
	OwnerID               string         `json:"owner_id"`
	GroupID               string         `json:"group_id,omitempty"`
	Name                  string         `json:"name"`
	Date                  string         `json:"date"`
	Time                  string         `json:"time"`
	Location              string         `json:"location"`
	TotalCost             float64        `json:"total_cost"`
	MatchType             int            `json:"match_type"`
	MaxParticipants       int            `json:"max_participants"`
	Participants          []Participant  `json:"participants"`
	Registrations         []Registration `json:"registrations"`
	Votes                 []Vote         `json:"votes"`
	ConfirmedResult       []string       `json:"confirmed_result"`
	Status                Status         `json:"status"`
	Organizer             string         `json:"organizer"`
	EventRules            []Rule         `json:"event_rules"`
	DisabledGlobalRuleIDs []string       `json:"disabled_global_rule_ids"`
	FineAllocation        Allocation     `json:"fine_allocation"`
	ScoreA                *int           `json:"score_a,omitempty"`
	ScoreB                *int           `json:"score_b,omitempty"`
	// RuleSnapshot is the effective rule list used by the last evaluation.
	RuleSnapshot []Rule    `json:"rule_snapshot,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Participant returns the participant with the given id.
func (m *Match) Participant(id string) (*Participant, bool) {
	for i := range m.Participants {
		if m.Participants[i].ID == id {
			return &m.Participants[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can mutate without sharing slices.
func (m Match) Clone() Match {
	c := m
	c.Participants = make([]Participant, len(m.Participants))
	for i, p := range m.Participants {
		p.Infractions = slices.Clone(p.Infractions)
		c.Participants[i] = p
	}
	c.Registrations = slices.Clone(m.Registrations)
	c.Votes = slices.Clone(m.Votes)
	c.ConfirmedResult = slices.Clone(m.ConfirmedResult)
	c.EventRules = slices.Clone(m.EventRules)
	c.DisabledGlobalRuleIDs = slices.Clone(m.DisabledGlobalRuleIDs)
	c.RuleSnapshot = slices.Clone(m.RuleSnapshot)
	if m.ScoreA != nil {
		a := *m.ScoreA
		c.ScoreA = &a
	}
	if m.ScoreB != nil {
		b := *m.ScoreB
		c.ScoreB = &b
	}
	return c
}
