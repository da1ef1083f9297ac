package rest

import (
	"net/http"
	"strconv"

	"github.com/chunxia/legion/game/roster"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RankingHandler handles leaderboard REST endpoints.
type RankingHandler struct {
	roster *roster.Syncer
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(r *roster.Syncer, logger *zap.Logger) *RankingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingHandler{roster: r, logger: logger}
}

// Power returns members sorted by final attack power.
// GET /api/ranking/power?limit=20
func (h *RankingHandler) Power(c *gin.Context) {
	limit := roster.DefaultRankingLimit
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= roster.MaxRankingLimit {
		limit = l
	}
	entries, err := h.roster.Ranking(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("ranking query failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "db error")
		return
	}
	ok(c, gin.H{"ranking": entries})
}
