// Package session drives a match through its lifecycle: registration, the
// live session, voting, and closing. Every function takes a match by value
// and returns the updated copy; fines are recalculated after each change
// that can affect them.
package session

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/okian/penaltyhub/internal/domain/fines"
	"github.com/okian/penaltyhub/internal/domain/ledger"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/teams"
)

func requireStatus(m model.Match, allowed ...model.Status) error {
	if slices.Contains(allowed, m.Status) {
		return nil
	}
	return fmt.Errorf("%w: match %s is %s", ErrWrongStatus, m.ID, m.Status)
}

// Register adds a registration or updates the guest count of an existing one.
func Register(m model.Match, r model.Registration) (model.Match, error) {
	if err := requireStatus(m, model.StatusRegistration); err != nil {
		return m, err
	}
	if r.UserID == "" {
		return m, ErrMissingUser
	}
	if r.Guests < 0 {
		r.Guests = 0
	}
	m = m.Clone()
	for i := range m.Registrations {
		if m.Registrations[i].UserID == r.UserID {
			m.Registrations[i].Guests = r.Guests
			return m, nil
		}
	}
	m.Registrations = append(m.Registrations, r)
	return m, nil
}

// Capacity is the roster size for the match, or 0 when unbounded.
func Capacity(m model.Match) int {
	if m.MatchType > 0 {
		return m.MatchType * 2
	}
	return m.MaxParticipants
}

// Start builds the roster from registrations in order, each registrant
// followed by their guests, until capacity is reached. Everyone is assumed
// on time until told otherwise.
func Start(m model.Match, global []model.Rule) (model.Match, error) {
	if err := requireStatus(m, model.StatusRegistration); err != nil {
		return m, err
	}
	m = m.Clone()
	limit := Capacity(m)
	full := func(n int) bool { return limit > 0 && n >= limit }

	roster := make([]model.Participant, 0, len(m.Registrations))
	for _, reg := range m.Registrations {
		if full(len(roster)) {
			break
		}
		roster = append(roster, newParticipant(reg.UserID, reg.UserID, reg.Name, m.Time, model.TeamA))
		for i := 0; i < reg.Guests && !full(len(roster)); i++ {
			id := fmt.Sprintf("%s%s-%d", model.GuestPrefix, reg.UserID, i)
			roster = append(roster, newParticipant(id, "", "Ospite di "+reg.Nickname, m.Time, model.TeamB))
		}
	}

	a, b := 0, 0
	m.Participants = roster
	m.Status = model.StatusOpen
	m.ScoreA, m.ScoreB = &a, &b
	return Recalculate(m, global), nil
}

func newParticipant(id, userID, name, arrival string, team model.Team) model.Participant {
	return model.Participant{
		ID:          id,
		UserID:      userID,
		Name:        name,
		ArrivalTime: arrival,
		Infractions: []model.Infraction{},
		Team:        team,
	}
}

// Recalculate re-runs the fine engine and records the rule snapshot it used.
// Closed matches are frozen and returned unchanged.
func Recalculate(m model.Match, global []model.Rule) model.Match {
	if m.Status == model.StatusClosed {
		return m
	}
	m = m.Clone()
	m.Participants, m.RuleSnapshot = fines.CalculateMatch(m, global)
	return m
}

// ApplyUpdate patches one participant and recalculates.
func ApplyUpdate(m model.Match, u model.Update, global []model.Rule) (model.Match, error) {
	if err := requireStatus(m, model.StatusOpen, model.StatusVoting); err != nil {
		return m, err
	}
	m = m.Clone()
	p, ok := m.Participant(u.ParticipantID)
	if !ok {
		return m, fmt.Errorf("%w: %s", ErrNotParticipant, u.ParticipantID)
	}
	if u.ArrivalTime != nil {
		if _, err := model.ParseClock(*u.ArrivalTime); err != nil {
			return m, err
		}
		p.ArrivalTime = *u.ArrivalTime
	}
	setInt(&p.Goals, u.Goals)
	setInt(&p.Nutmegs, u.Nutmegs)
	setInt(&p.PostHits, u.PostHits)
	setInt(&p.YellowCards, u.YellowCards)
	setInt(&p.OwnGoals, u.OwnGoals)
	if u.ForgotKit != nil {
		p.ForgotKit = *u.ForgotKit
	}
	if u.IsMVP != nil {
		p.IsMVP = *u.IsMVP
	}
	if u.Team != nil {
		p.Team = *u.Team
	}
	p.Infractions = append(p.Infractions, u.Infractions...)
	return Recalculate(m, global), nil
}

// counters never go negative
func setInt(dst *int, v *int) {
	if v == nil {
		return
	}
	*dst = max(0, *v)
}

// ToggleGlobalRule disables a global rule for this match, or enables it again.
func ToggleGlobalRule(m model.Match, ruleID string, global []model.Rule) (model.Match, error) {
	if err := requireStatus(m, model.StatusRegistration, model.StatusOpen, model.StatusVoting); err != nil {
		return m, err
	}
	m = m.Clone()
	if i := slices.Index(m.DisabledGlobalRuleIDs, ruleID); i >= 0 {
		m.DisabledGlobalRuleIDs = slices.Delete(m.DisabledGlobalRuleIDs, i, i+1)
	} else {
		m.DisabledGlobalRuleIDs = append(m.DisabledGlobalRuleIDs, ruleID)
	}
	return Recalculate(m, global), nil
}

// AddEventRule attaches a match-only rule.
func AddEventRule(m model.Match, r model.Rule, global []model.Rule) (model.Match, error) {
	if err := requireStatus(m, model.StatusRegistration, model.StatusOpen, model.StatusVoting); err != nil {
		return m, err
	}
	m = m.Clone()
	m.EventRules = append(m.EventRules, r)
	return Recalculate(m, global), nil
}

// AssignTeams tags the roster with a balancing result. Fines do not depend
// on teams, so no recalculation is needed.
func AssignTeams(m model.Match, res teams.Result) (model.Match, error) {
	if err := requireStatus(m, model.StatusOpen, model.StatusVoting); err != nil {
		return m, err
	}
	m = m.Clone()
	m.Participants = teams.Apply(m.Participants, res)
	return m, nil
}

// SetScore records the final score.
func SetScore(m model.Match, a, b int) (model.Match, error) {
	if err := requireStatus(m, model.StatusOpen, model.StatusVoting); err != nil {
		return m, err
	}
	if a < 0 || b < 0 {
		return m, ErrInvalidScore
	}
	m = m.Clone()
	m.ScoreA, m.ScoreB = &a, &b
	return m, nil
}

// OpenVoting moves a live match to voting.
func OpenVoting(m model.Match) (model.Match, error) {
	if err := requireStatus(m, model.StatusOpen); err != nil {
		return m, err
	}
	m = m.Clone()
	m.Status = model.StatusVoting
	return m, nil
}

// CastVote records a voter's picks, replacing any earlier vote. Voters are
// user ids; picks are participant names.
func CastVote(m model.Match, v model.Vote) (model.Match, error) {
	if err := requireStatus(m, model.StatusOpen, model.StatusVoting); err != nil {
		return m, err
	}
	users := userIDs(m)
	if !users.Contains(v.VoterID) {
		return m, fmt.Errorf("%w: voter %s", ErrNotParticipant, v.VoterID)
	}
	names := mapset.NewThreadUnsafeSet[string]()
	for _, p := range m.Participants {
		names.Add(p.Name)
	}
	for _, pick := range []string{v.MVPID, v.LVPID} {
		if !names.Contains(pick) {
			return m, fmt.Errorf("%w: %s", ErrNotParticipant, pick)
		}
	}

	m = m.Clone()
	m.Votes = slices.DeleteFunc(m.Votes, func(old model.Vote) bool { return old.VoterID == v.VoterID })
	m.Votes = append(m.Votes, v)
	return m, nil
}

// ConfirmResult records that a user agrees with the result. Idempotent.
func ConfirmResult(m model.Match, userID string) (model.Match, error) {
	if err := requireStatus(m, model.StatusOpen, model.StatusVoting); err != nil {
		return m, err
	}
	if !userIDs(m).Contains(userID) {
		return m, fmt.Errorf("%w: %s", ErrNotParticipant, userID)
	}
	if slices.Contains(m.ConfirmedResult, userID) {
		return m, nil
	}
	m = m.Clone()
	m.ConfirmedResult = append(m.ConfirmedResult, userID)
	return m, nil
}

// userIDs are the non-guest participants' user ids.
func userIDs(m model.Match) mapset.Set[string] {
	ids := mapset.NewThreadUnsafeSet[string]()
	for _, p := range m.Participants {
		if !p.IsGuest() {
			ids.Add(p.UserID)
		}
	}
	return ids
}

// ReadyToClose checks that every non-guest participant confirmed and voted.
func ReadyToClose(m model.Match) error {
	users := userIDs(m)
	confirmed := mapset.NewThreadUnsafeSet(m.ConfirmedResult...)
	voted := mapset.NewThreadUnsafeSet[string]()
	for _, v := range m.Votes {
		voted.Add(v.VoterID)
	}
	if missing := users.Difference(confirmed); missing.Cardinality() > 0 {
		return fmt.Errorf("%w: %d missing", ErrNotConfirmed, missing.Cardinality())
	}
	if missing := users.Difference(voted); missing.Cardinality() > 0 {
		return fmt.Errorf("%w: %d missing", ErrNotVoted, missing.Cardinality())
	}
	return nil
}

// Close freezes the match and returns its settlement. Amounts are
// recalculated one last time against the current catalogue, and the rule
// snapshot used stays on the match.
func Close(m model.Match, global []model.Rule, ownerID string) (model.Match, []model.Transaction, error) {
	if err := requireStatus(m, model.StatusOpen, model.StatusVoting); err != nil {
		return m, nil, err
	}
	if err := ReadyToClose(m); err != nil {
		return m, nil, err
	}
	m = Recalculate(m, global)
	m.Status = model.StatusClosed
	return m, ledger.Settle(m, ownerID), nil
}
