package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/penaltyhub/internal/app"
	"github.com/okian/penaltyhub/internal/domain/model"
)

// BetDependencies proposes and settles side bets.
type BetDependencies interface {
	CreateBet(ctx context.Context, d service.BetDraft) (model.Bet, error)
	ListBets(ctx context.Context) ([]model.Bet, error)
	SettleBet(ctx context.Context, id, winner string) (model.Bet, []model.Transaction, error)
}

// BetsHandler handles /bets requests.
type BetsHandler struct {
	deps BetDependencies
}

// NewBetsHandler creates a new bets handler.
func NewBetsHandler(deps BetDependencies) *BetsHandler {
	return &BetsHandler{deps: deps}
}

type settleRequest struct {
	Winner string `json:"winner"`
}

type settleResponse struct {
	Bet          model.Bet           `json:"bet"`
	Transactions []model.Transaction `json:"transactions"`
}

// HandleList handles GET /bets.
func (h *BetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_bets"
	bets, err := h.deps.ListBets(r.Context())
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

// HandleCreate handles POST /bets.
func (h *BetsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_bet"
	var d service.BetDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	b, err := h.deps.CreateBet(r.Context(), d)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// HandleSettle handles POST /bets/{id}/settle.
func (h *BetsHandler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	const op = "api.settle_bet"
	var req settleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Winner == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing winner")))
		return
	}
	b, txs, err := h.deps.SettleBet(r.Context(), r.PathValue("id"), req.Winner)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{Bet: b, Transactions: txs})
}
