package api

import (
	"context"
	"net/http"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// PlayerDependencies derives player statistics.
type PlayerDependencies interface {
	Stats(ctx context.Context, names []string) ([]model.UserStats, error)
}

// PlayersHandler handles /players requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleStats handles GET /players/stats?name=a&name=b. Without names every
// player with a closed match is returned.
func (h *PlayersHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_stats"
	st, err := h.deps.Stats(r.Context(), r.URL.Query()["name"])
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
