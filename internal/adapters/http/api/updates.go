package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/penaltyhub/internal/app"
	"github.com/okian/penaltyhub/internal/domain/model"
)

// UpdateDependencies accepts participant updates for asynchronous processing.
type UpdateDependencies interface {
	// SubmitUpdate queues an update. A repeated update id is reported as a
	// duplicate; a full queue returns queue.ErrFull.
	SubmitUpdate(ctx context.Context, u model.Update) (service.Submission, error)
}

// UpdatesHandler handles participant update requests.
type UpdatesHandler struct {
	deps UpdateDependencies
}

// NewUpdatesHandler creates a new updates handler.
func NewUpdatesHandler(deps UpdateDependencies) *UpdatesHandler {
	return &UpdatesHandler{deps: deps}
}

// updateRequest mirrors the OpenAPI schema for POST /matches/{id}/updates.
// Omitted fields are left untouched.
type updateRequest struct {
	UpdateID      string             `json:"update_id"`
	ParticipantID string             `json:"participant_id"`
	ArrivalTime   *string            `json:"arrival_time"`
	Goals         *int               `json:"goals"`
	Nutmegs       *int               `json:"nutmegs"`
	PostHits      *int               `json:"post_hits"`
	YellowCards   *int               `json:"yellow_cards"`
	OwnGoals      *int               `json:"own_goals"`
	ForgotKit     *bool              `json:"forgot_kit"`
	IsMVP         *bool              `json:"is_mvp"`
	Team          *model.Team        `json:"team"`
	Infractions   []model.Infraction `json:"infractions"`
	TS            string             `json:"ts"`
}

func (u updateRequest) validate() error {
	if strings.TrimSpace(u.ParticipantID) == "" {
		return errors.New("missing participant_id")
	}
	if u.Team != nil && *u.Team != model.TeamA && *u.Team != model.TeamB && *u.Team != model.TeamNone {
		return errors.New("team must be A or B")
	}
	if u.TS != "" {
		if _, err := time.Parse(time.RFC3339, u.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

func (u updateRequest) toUpdate(matchID string) model.Update {
	var ts time.Time
	if u.TS != "" {
		ts, _ = time.Parse(time.RFC3339, u.TS)
	}
	return model.Update{
		UpdateID:      u.UpdateID,
		MatchID:       matchID,
		ParticipantID: u.ParticipantID,
		ArrivalTime:   u.ArrivalTime,
		Goals:         u.Goals,
		Nutmegs:       u.Nutmegs,
		PostHits:      u.PostHits,
		YellowCards:   u.YellowCards,
		OwnGoals:      u.OwnGoals,
		ForgotKit:     u.ForgotKit,
		IsMVP:         u.IsMVP,
		Team:          u.Team,
		Infractions:   u.Infractions,
		TS:            ts,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	UpdateID  string `json:"update_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostUpdate handles POST /matches/{id}/updates.
func (h *UpdatesHandler) HandlePostUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_update"
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sub, err := h.deps.SubmitUpdate(r.Context(), req.toUpdate(r.PathValue("id")))
	if err != nil {
		fail(w, op, err)
		return
	}
	if sub.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", UpdateID: sub.UpdateID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", UpdateID: sub.UpdateID})
}
