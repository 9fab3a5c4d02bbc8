// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/penaltyhub/internal/app"
	"github.com/okian/penaltyhub/internal/adapters/mq/queue"
	"github.com/okian/penaltyhub/internal/adapters/repository"
	"github.com/okian/penaltyhub/internal/domain/ledger"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
	"github.com/okian/penaltyhub/internal/domain/session"
	"github.com/okian/penaltyhub/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RuleDependencies
	MatchDependencies
	UpdateDependencies
	LedgerDependencies
	BetDependencies
	PlayerDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	rulesHandler   *RulesHandler
	matchesHandler *MatchesHandler
	updatesHandler *UpdatesHandler
	ledgerHandler  *LedgerHandler
	betsHandler    *BetsHandler
	playersHandler *PlayersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(statsProvider),
		rulesHandler:   NewRulesHandler(deps),
		matchesHandler: NewMatchesHandler(deps),
		updatesHandler: NewUpdatesHandler(deps),
		ledgerHandler:  NewLedgerHandler(deps),
		betsHandler:    NewBetsHandler(deps),
		playersHandler: NewPlayersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	log := logger.Named("http")
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, instrument(log, endpoint, h))
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	handle("GET /stats", "stats", s.healthHandler.HandleStats)

	handle("GET /rules", "rules", s.rulesHandler.HandleList)
	handle("POST /rules", "rules", s.rulesHandler.HandleCreate)
	handle("PUT /rules/{id}", "rule", s.rulesHandler.HandleReplace)
	handle("DELETE /rules/{id}", "rule", s.rulesHandler.HandleDelete)

	m := s.matchesHandler
	handle("GET /matches", "matches", m.HandleList)
	handle("POST /matches", "matches", m.HandleCreate)
	handle("GET /matches/{id}", "match", m.HandleGet)
	handle("POST /matches/{id}/registrations", "match_registrations", m.HandleRegister)
	handle("POST /matches/{id}/start", "match_start", m.HandleStart)
	handle("POST /matches/{id}/updates", "match_updates", s.updatesHandler.HandlePostUpdate)
	handle("POST /matches/{id}/rules/toggle", "match_rules_toggle", m.HandleToggleRule)
	handle("POST /matches/{id}/rules", "match_rules", m.HandleAddRule)
	handle("POST /matches/{id}/score", "match_score", m.HandleScore)
	handle("POST /matches/{id}/voting", "match_voting", m.HandleOpenVoting)
	handle("POST /matches/{id}/votes", "match_votes", m.HandleVote)
	handle("POST /matches/{id}/confirmations", "match_confirmations", m.HandleConfirm)
	handle("GET /matches/{id}/teams", "match_teams", m.HandleSuggestTeams)
	handle("POST /matches/{id}/teams", "match_teams", m.HandleApplyTeams)
	handle("POST /matches/{id}/close", "match_close", m.HandleClose)

	handle("GET /ledger", "ledger", s.ledgerHandler.HandleList)
	handle("POST /ledger/{id}/paid", "ledger_paid", s.ledgerHandler.HandleMarkPaid)
	handle("GET /ledger/balance/{name}", "ledger_balance", s.ledgerHandler.HandleBalance)
	handle("GET /fund", "fund", s.ledgerHandler.HandleFund)

	handle("GET /bets", "bets", s.betsHandler.HandleList)
	handle("POST /bets", "bets", s.betsHandler.HandleCreate)
	handle("POST /bets/{id}/settle", "bet_settle", s.betsHandler.HandleSettle)

	handle("GET /players/stats", "player_stats", s.playersHandler.HandleStats)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	markError(w, code)
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// badRequest is returned by domain validation; it maps to 400.
var badRequest = []error{
	service.ErrInvalidInput,
	model.ErrInvalidClock,
	session.ErrMissingUser,
	session.ErrNotParticipant,
	session.ErrInvalidScore,
	ledger.ErrUnknownWinner,
	rules.ErrEmptyDescription,
	rules.ErrEmptyValue,
	rules.ErrUnknownVariable,
	rules.ErrUnknownOperator,
	rules.ErrUnknownAction,
	rules.ErrInvalidThreshold,
}

// conflicts are operations refused in the current state; they map to 409.
var conflicts = []error{
	repository.ErrConflict,
	session.ErrWrongStatus,
	session.ErrNotConfirmed,
	session.ErrNotVoted,
	ledger.ErrBetClosed,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// fail translates a service error into a status and error code.
func fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, queue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case isAny(err, conflicts):
		writeError(w, http.StatusConflict, "conflict", WrapKind(op, ErrConflict, err))
	case isAny(err, badRequest):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}
