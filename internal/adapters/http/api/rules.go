package api

import (
	"context"
	"net/http"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
)

// RuleDependencies manages the global rule catalogue.
type RuleDependencies interface {
	ListRules(ctx context.Context) ([]model.Rule, error)
	CreateRule(ctx context.Context, d rules.Draft) (model.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	ReplaceRule(ctx context.Context, id string, d rules.Draft) (model.Rule, error)
}

// RulesHandler handles /rules requests.
type RulesHandler struct {
	deps RuleDependencies
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(deps RuleDependencies) *RulesHandler {
	return &RulesHandler{deps: deps}
}

// HandleList handles GET /rules.
func (h *RulesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_rules"
	rs, err := h.deps.ListRules(r.Context())
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// HandleCreate handles POST /rules.
func (h *RulesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_rule"
	var d rules.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rule, err := h.deps.CreateRule(r.Context(), d)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// HandleReplace handles PUT /rules/{id}. The replacement gets a new id.
func (h *RulesHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_rule"
	var d rules.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rule, err := h.deps.ReplaceRule(r.Context(), r.PathValue("id"), d)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// HandleDelete handles DELETE /rules/{id}.
func (h *RulesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_rule"
	if err := h.deps.DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		fail(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
