package api

import (
	"context"
	"net/http"

	"github.com/okian/segscore/internal/domain/types"
	"github.com/okian/segscore/pkg/logger"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) (types.Podium, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
	log  logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, log logger.Logger) *LeaderboardHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LeaderboardHandler{deps: deps, log: log}
}

// HandleGetLeaderboard handles GET /leaderboard requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	board, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "reading leaderboard", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", internalMessage)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
