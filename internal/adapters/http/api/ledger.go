package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	service "github.com/okian/penaltyhub/internal/app"
	"github.com/okian/penaltyhub/internal/domain/model"
)

// LedgerDependencies reads and settles debts.
type LedgerDependencies interface {
	ListTransactions(ctx context.Context, name string) ([]model.Transaction, error)
	MarkPaid(ctx context.Context, id string) (model.Transaction, error)
	Balance(ctx context.Context, name string) (service.BalanceView, error)
	FundBalance(ctx context.Context) (decimal.Decimal, error)
}

// LedgerHandler handles /ledger and /fund requests.
type LedgerHandler struct {
	deps LedgerDependencies
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(deps LedgerDependencies) *LedgerHandler {
	return &LedgerHandler{deps: deps}
}

type fundResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// HandleList handles GET /ledger?name=N.
func (h *LedgerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_ledger"
	txs, err := h.deps.ListTransactions(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// HandleMarkPaid handles POST /ledger/{id}/paid.
func (h *LedgerHandler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	const op = "api.mark_paid"
	tx, err := h.deps.MarkPaid(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// HandleBalance handles GET /ledger/balance/{name}.
func (h *LedgerHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	const op = "api.balance"
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	b, err := h.deps.Balance(r.Context(), name)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleFund handles GET /fund.
func (h *LedgerHandler) HandleFund(w http.ResponseWriter, r *http.Request) {
	const op = "api.fund"
	b, err := h.deps.FundBalance(r.Context())
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, fundResponse{Balance: b})
}
