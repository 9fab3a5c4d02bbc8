package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/penaltyhub/internal/adapters/mq/queue"
	"github.com/okian/penaltyhub/internal/adapters/repository"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
	"github.com/okian/penaltyhub/internal/domain/session"
	"github.com/okian/penaltyhub/internal/domain/stats"
	"github.com/okian/penaltyhub/internal/domain/teams"
	"github.com/okian/penaltyhub/pkg/logger"
	"github.com/okian/penaltyhub/pkg/metrics"
)

// MatchDraft is what a caller provides to schedule a match.
type MatchDraft struct {
	Name            string           `json:"name"`
	Date            string           `json:"date"`
	Time            string           `json:"time"`
	Location        string           `json:"location"`
	TotalCost       float64          `json:"total_cost"`
	MatchType       int              `json:"match_type"`
	MaxParticipants int              `json:"max_participants"`
	Organizer       string           `json:"organizer"`
	FineAllocation  model.Allocation `json:"fine_allocation"`
	GroupID         string           `json:"group_id"`
}

// Submission acknowledges an accepted update.
type Submission struct {
	UpdateID  string `json:"update_id"`
	Duplicate bool   `json:"duplicate"`
}

// CreateMatch validates a draft and stores a new match in registration.
func (s *Service) CreateMatch(ctx context.Context, d MatchDraft) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	if strings.TrimSpace(d.Name) == "" {
		return model.Match{}, fmt.Errorf("%w: match name is required", ErrInvalidInput)
	}
	if _, err := model.ParseClock(d.Time); err != nil {
		return model.Match{}, err
	}
	if d.Date == "" {
		d.Date = s.now().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, d.Date); err != nil {
		return model.Match{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidInput, d.Date)
	}
	if d.TotalCost < 0 || d.MatchType < 0 || d.MaxParticipants < 0 {
		return model.Match{}, fmt.Errorf("%w: cost and sizes must not be negative", ErrInvalidInput)
	}
	switch d.FineAllocation {
	case "":
		d.FineAllocation = s.defaultAllocation
	case model.AllocationSplit, model.AllocationFund:
	default:
		return model.Match{}, fmt.Errorf("%w: unknown fine allocation %q", ErrInvalidInput, d.FineAllocation)
	}

	m := model.Match{
		ID:                    uuid.NewString(),
		OwnerID:               s.ownerID,
		GroupID:               d.GroupID,
		Name:                  d.Name,
		Date:                  d.Date,
		Time:                  d.Time,
		Location:              d.Location,
		TotalCost:             d.TotalCost,
		MatchType:             d.MatchType,
		MaxParticipants:       d.MaxParticipants,
		Participants:          []model.Participant{},
		Registrations:         []model.Registration{},
		Votes:                 []model.Vote{},
		ConfirmedResult:       []string{},
		Status:                model.StatusRegistration,
		Organizer:             d.Organizer,
		EventRules:            []model.Rule{},
		DisabledGlobalRuleIDs: []string{},
		FineAllocation:        d.FineAllocation,
		CreatedAt:             s.now(),
	}
	if err := s.store.CreateMatch(ctx, m); err != nil {
		return model.Match{}, err
	}
	s.logger.Info(ctx, "match created", logger.String("match_id", m.ID), logger.String("name", m.Name))
	return s.store.GetMatch(ctx, m.ID)
}

// GetMatch returns one match.
func (s *Service) GetMatch(ctx context.Context, id string) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	return s.store.GetMatch(ctx, id)
}

// ListMatches returns matches newest first.
func (s *Service) ListMatches(ctx context.Context) ([]model.Match, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.ListMatches(ctx)
}

// mutate runs a lifecycle step against the stored match and the current
// global catalogue, under the store's per-match write.
func (s *Service) mutate(ctx context.Context, id string, step func(model.Match, []model.Rule) (model.Match, error)) (model.Match, error) {
	global, err := s.store.ListRules(ctx)
	if err != nil {
		return model.Match{}, err
	}
	start := time.Now()
	m, err := s.store.UpdateMatch(ctx, id, func(m *model.Match) error {
		next, err := step(*m, global)
		if err != nil {
			return err
		}
		*m = next
		return nil
	})
	if err != nil {
		return model.Match{}, err
	}
	metrics.RecordFineCalculation(float64(time.Since(start).Microseconds()) / 1000)
	return m, nil
}

// Register signs a user up, or changes the number of guests they bring.
func (s *Service) Register(ctx context.Context, matchID string, r model.Registration) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	if r.Nickname == "" {
		r.Nickname = r.Name
	}
	if r.Timestamp == 0 {
		r.Timestamp = s.now().UnixMilli()
	}
	return s.mutate(ctx, matchID, func(m model.Match, _ []model.Rule) (model.Match, error) {
		return session.Register(m, r)
	})
}

// StartSession builds the roster and opens the match.
func (s *Service) StartSession(ctx context.Context, matchID string) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	m, err := s.mutate(ctx, matchID, session.Start)
	if err != nil {
		return model.Match{}, err
	}
	s.logger.Info(ctx, "session started", logger.String("match_id", matchID), logger.Int("participants", len(m.Participants)))
	return m, nil
}

// SubmitUpdate checks an update against the match and queues it for the
// workers. A repeated update id is acknowledged as a duplicate and dropped.
// When the queue is full the id is forgotten so the caller can retry.
func (s *Service) SubmitUpdate(ctx context.Context, u model.Update) (Submission, error) {
	if err := s.running(); err != nil {
		return Submission{}, err
	}
	if u.MatchID == "" || u.ParticipantID == "" {
		return Submission{}, fmt.Errorf("%w: match and participant are required", ErrInvalidInput)
	}
	if u.ArrivalTime != nil {
		if _, err := model.ParseClock(*u.ArrivalTime); err != nil {
			return Submission{}, err
		}
	}
	m, err := s.store.GetMatch(ctx, u.MatchID)
	if err != nil {
		return Submission{}, err
	}
	if m.Status != model.StatusOpen && m.Status != model.StatusVoting {
		return Submission{}, fmt.Errorf("%w: match %s is %s", session.ErrWrongStatus, m.ID, m.Status)
	}
	if _, ok := m.Participant(u.ParticipantID); !ok {
		return Submission{}, fmt.Errorf("%w: %s", session.ErrNotParticipant, u.ParticipantID)
	}

	if u.UpdateID == "" {
		u.UpdateID = uuid.NewString()
	}
	if u.TS.IsZero() {
		u.TS = s.now()
	}

	if s.deduper.SeenAndRecord(ctx, u.UpdateID) {
		metrics.RecordUpdateDuplicate()
		s.logger.Debug(ctx, "duplicate update skipped", logger.String("update_id", u.UpdateID))
		return Submission{UpdateID: u.UpdateID, Duplicate: true}, nil
	}
	if !s.eventQueue.Enqueue(ctx, u) {
		s.deduper.Unrecord(ctx, u.UpdateID)
		if s.eventQueue.IsClosed() {
			return Submission{}, eventqueue.ErrClosed
		}
		return Submission{}, eventqueue.ErrFull
	}
	metrics.UpdateDedupeSize(s.deduper.Size())
	s.logger.Debug(ctx, "update queued",
		logger.String("update_id", u.UpdateID),
		logger.String("match_id", u.MatchID),
		logger.String("participant_id", u.ParticipantID),
	)
	return Submission{UpdateID: u.UpdateID}, nil
}

// ApplyUpdate patches a participant and recalculates the match. Workers call
// it for queued updates; it can also be used synchronously.
func (s *Service) ApplyUpdate(ctx context.Context, u model.Update) error {
	_, err := s.mutate(ctx, u.MatchID, func(m model.Match, global []model.Rule) (model.Match, error) {
		return session.ApplyUpdate(m, u, global)
	})
	if err != nil {
		return err
	}
	metrics.RecordUpdateApplied()
	return nil
}

// updateApplier is the worker-facing side of the service: a rejected update
// is forgotten by the deduper so a corrected retry with the same id is not
// taken for a duplicate.
type updateApplier struct{ s *Service }

func (a updateApplier) ApplyUpdate(ctx context.Context, u model.Update) error {
	err := a.s.ApplyUpdate(ctx, u)
	if err != nil {
		a.s.deduper.Unrecord(ctx, u.UpdateID)
	}
	return err
}

// ToggleGlobalRule disables a catalogue rule for one match, or enables it
// again.
func (s *Service) ToggleGlobalRule(ctx context.Context, matchID, ruleID string) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	return s.mutate(ctx, matchID, func(m model.Match, global []model.Rule) (model.Match, error) {
		known := false
		for _, r := range global {
			if r.ID == ruleID {
				known = true
				break
			}
		}
		for _, id := range m.DisabledGlobalRuleIDs {
			if id == ruleID {
				known = true
				break
			}
		}
		if !known {
			return m, fmt.Errorf("rule %s: %w", ruleID, repository.ErrNotFound)
		}
		return session.ToggleGlobalRule(m, ruleID, global)
	})
}

// AddEventRule validates a draft and attaches it to one match only.
func (s *Service) AddEventRule(ctx context.Context, matchID string, d rules.Draft) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	if d.OwnerID == "" {
		d.OwnerID = s.ownerID
	}
	r, err := rules.Validate(d)
	if err != nil {
		return model.Match{}, err
	}
	return s.mutate(ctx, matchID, func(m model.Match, global []model.Rule) (model.Match, error) {
		return session.AddEventRule(m, r, global)
	})
}

// SetScore records the final score.
func (s *Service) SetScore(ctx context.Context, matchID string, a, b int) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	return s.mutate(ctx, matchID, func(m model.Match, _ []model.Rule) (model.Match, error) {
		return session.SetScore(m, a, b)
	})
}

// OpenVoting moves a live match to voting.
func (s *Service) OpenVoting(ctx context.Context, matchID string) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	return s.mutate(ctx, matchID, func(m model.Match, _ []model.Rule) (model.Match, error) {
		return session.OpenVoting(m)
	})
}

// CastVote records an MVP and LVP pick.
func (s *Service) CastVote(ctx context.Context, matchID string, v model.Vote) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	return s.mutate(ctx, matchID, func(m model.Match, _ []model.Rule) (model.Match, error) {
		return session.CastVote(m, v)
	})
}

// ConfirmResult records that a user agrees with the result.
func (s *Service) ConfirmResult(ctx context.Context, matchID, userID string) (model.Match, error) {
	if err := s.running(); err != nil {
		return model.Match{}, err
	}
	return s.mutate(ctx, matchID, func(m model.Match, _ []model.Rule) (model.Match, error) {
		return session.ConfirmResult(m, userID)
	})
}

// SuggestTeams balances the roster using stats from closed matches.
func (s *Service) SuggestTeams(ctx context.Context, matchID string) (teams.Result, error) {
	if err := s.running(); err != nil {
		return teams.Result{}, err
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return teams.Result{}, err
	}
	history, txs, err := s.history(ctx)
	if err != nil {
		return teams.Result{}, err
	}
	names := make([]string, len(m.Participants))
	for i, p := range m.Participants {
		names[i] = p.Name
	}
	return teams.Balance(m.Participants, stats.Compute(names, history, txs)), nil
}

// ApplyTeams balances the roster and stores the team tags on the match.
func (s *Service) ApplyTeams(ctx context.Context, matchID string) (model.Match, error) {
	res, err := s.SuggestTeams(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	return s.mutate(ctx, matchID, func(m model.Match, _ []model.Rule) (model.Match, error) {
		return session.AssignTeams(m, res)
	})
}

// CloseMatch freezes the match and writes its settlement to the ledger in
// the same store write.
func (s *Service) CloseMatch(ctx context.Context, matchID string) (model.Match, []model.Transaction, error) {
	if err := s.running(); err != nil {
		return model.Match{}, nil, err
	}
	global, err := s.store.ListRules(ctx)
	if err != nil {
		return model.Match{}, nil, err
	}
	m, txs, err := s.store.CloseMatch(ctx, matchID, func(m *model.Match) ([]model.Transaction, error) {
		closed, txs, err := session.Close(*m, global, s.ownerID)
		if err != nil {
			return nil, err
		}
		*m = closed
		return txs, nil
	})
	if err != nil {
		return model.Match{}, nil, err
	}
	metrics.RecordMatchClosed()
	metrics.RecordTransactions(len(txs))
	s.logger.Info(ctx, "match closed",
		logger.String("match_id", matchID),
		logger.Int("transactions", len(txs)),
	)
	return m, txs, nil
}

// history is every closed match plus the full ledger.
func (s *Service) history(ctx context.Context) ([]model.Match, []model.Transaction, error) {
	all, err := s.store.ListMatches(ctx)
	if err != nil {
		return nil, nil, err
	}
	closed := make([]model.Match, 0, len(all))
	for _, m := range all {
		if m.Status == model.StatusClosed {
			closed = append(closed, m)
		}
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return closed, txs, nil
}
