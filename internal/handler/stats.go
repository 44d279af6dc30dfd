package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/secret-share/internal/service"
)

// StatsHandler serves the per-day visit statistics.
type StatsHandler struct {
	stats  *service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler serving the owner statistics route.
func NewStatsHandler(stats *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// HandleStats returns {"2026-10-17": {"files": 1, "links": 2}, ...}.
//
// HTTP: GET /api/stats
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stats, err := h.stats.Summarize(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Debug("stats computed",
		slog.Int("days", len(stats)),
		slog.Duration("took", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, stats)
}
