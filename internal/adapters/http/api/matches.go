package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/penaltyhub/internal/app"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
	"github.com/okian/penaltyhub/internal/domain/teams"
)

// MatchDependencies drives matches through their lifecycle.
type MatchDependencies interface {
	CreateMatch(ctx context.Context, d service.MatchDraft) (model.Match, error)
	GetMatch(ctx context.Context, id string) (model.Match, error)
	ListMatches(ctx context.Context) ([]model.Match, error)
	Register(ctx context.Context, matchID string, r model.Registration) (model.Match, error)
	StartSession(ctx context.Context, matchID string) (model.Match, error)
	ToggleGlobalRule(ctx context.Context, matchID, ruleID string) (model.Match, error)
	AddEventRule(ctx context.Context, matchID string, d rules.Draft) (model.Match, error)
	SetScore(ctx context.Context, matchID string, a, b int) (model.Match, error)
	OpenVoting(ctx context.Context, matchID string) (model.Match, error)
	CastVote(ctx context.Context, matchID string, v model.Vote) (model.Match, error)
	ConfirmResult(ctx context.Context, matchID, userID string) (model.Match, error)
	SuggestTeams(ctx context.Context, matchID string) (teams.Result, error)
	ApplyTeams(ctx context.Context, matchID string) (model.Match, error)
	CloseMatch(ctx context.Context, matchID string) (model.Match, []model.Transaction, error)
}

// MatchesHandler handles /matches requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

type toggleRequest struct {
	RuleID string `json:"rule_id"`
}

type scoreRequest struct {
	ScoreA *int `json:"score_a"`
	ScoreB *int `json:"score_b"`
}

type confirmRequest struct {
	UserID string `json:"user_id"`
}

type closeResponse struct {
	Match        model.Match         `json:"match"`
	Transactions []model.Transaction `json:"transactions"`
}

// HandleList handles GET /matches.
func (h *MatchesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_matches"
	ms, err := h.deps.ListMatches(r.Context())
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// HandleCreate handles POST /matches.
func (h *MatchesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_match"
	var d service.MatchDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := h.deps.CreateMatch(r.Context(), d)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleGet handles GET /matches/{id}.
func (h *MatchesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_match"
	m, err := h.deps.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleRegister handles POST /matches/{id}/registrations.
func (h *MatchesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	var reg model.Registration
	if err := decodeJSON(w, r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.Register(ctx, id, reg)
	}, r)
}

// HandleStart handles POST /matches/{id}/start.
func (h *MatchesHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "api.start_session", h.deps.StartSession, r)
}

// HandleToggleRule handles POST /matches/{id}/rules/toggle.
func (h *MatchesHandler) HandleToggleRule(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_rule"
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.RuleID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing rule_id")))
		return
	}
	h.respond(w, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.ToggleGlobalRule(ctx, id, req.RuleID)
	}, r)
}

// HandleAddRule handles POST /matches/{id}/rules.
func (h *MatchesHandler) HandleAddRule(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_event_rule"
	var d rules.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.AddEventRule(ctx, id, d)
	}, r)
}

// HandleScore handles POST /matches/{id}/score.
func (h *MatchesHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_score"
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.ScoreA == nil || req.ScoreB == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing score_a or score_b")))
		return
	}
	h.respond(w, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.SetScore(ctx, id, *req.ScoreA, *req.ScoreB)
	}, r)
}

// HandleOpenVoting handles POST /matches/{id}/voting.
func (h *MatchesHandler) HandleOpenVoting(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "api.open_voting", h.deps.OpenVoting, r)
}

// HandleVote handles POST /matches/{id}/votes.
func (h *MatchesHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.cast_vote"
	var v model.Vote
	if err := decodeJSON(w, r, &v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.CastVote(ctx, id, v)
	}, r)
}

// HandleConfirm handles POST /matches/{id}/confirmations.
func (h *MatchesHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	const op = "api.confirm_result"
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.ConfirmResult(ctx, id, req.UserID)
	}, r)
}

// HandleSuggestTeams handles GET /matches/{id}/teams.
func (h *MatchesHandler) HandleSuggestTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggest_teams"
	res, err := h.deps.SuggestTeams(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleApplyTeams handles POST /matches/{id}/teams.
func (h *MatchesHandler) HandleApplyTeams(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "api.apply_teams", h.deps.ApplyTeams, r)
}

// HandleClose handles POST /matches/{id}/close.
func (h *MatchesHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_match"
	m, txs, err := h.deps.CloseMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, closeResponse{Match: m, Transactions: txs})
}

// respond runs a match operation for the {id} path value and writes the
// updated match.
func (h *MatchesHandler) respond(w http.ResponseWriter, op string, fn func(context.Context, string) (model.Match, error), r *http.Request) {
	m, err := fn(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
