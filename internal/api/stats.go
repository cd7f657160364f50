package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/storage"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/rs/zerolog"
)

// StatsSource answers the dashboard's aggregate queries
type StatsSource interface {
	CountCallsBetween(ctx context.Context, from, to time.Time) (int64, error)
	AverageCallDuration(ctx context.Context) (*float64, error)
	CountNegativeCalls(ctx context.Context) (int64, error)
}

// StatsHandler serves the live counters and the archived daily stats.
// Days are UTC days.
type StatsHandler struct {
	stats   StatsSource
	archive storage.StatsArchive
	logger  zerolog.Logger
	now     func() time.Time
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(stats StatsSource, archive storage.StatsArchive, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:   stats,
		archive: archive,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
		now:     time.Now,
	}
}

// Today handles GET /api/stats/today
func (h *StatsHandler) Today(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	n, err := h.stats.CountCallsBetween(r.Context(), from, from.AddDate(0, 0, 1))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"callsToday": n})
}

// AverageDuration handles GET /api/stats/average-duration
func (h *StatsHandler) AverageDuration(w http.ResponseWriter, r *http.Request) {
	avg, err := h.stats.AverageCallDuration(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*float64{"averageDuration": avg})
}

// Negative handles GET /api/stats/negative
func (h *StatsHandler) Negative(w http.ResponseWriter, r *http.Request) {
	n, err := h.stats.CountNegativeCalls(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// History handles GET /api/stats/history?date=YYYY-MM-DD
func (h *StatsHandler) History(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse(types.DateKeyLayout, date); err != nil {
		writeError(w, h.logger, &types.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"})
		return
	}

	stats, err := h.archive.GetDailyStats(r.Context(), date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("failed to read daily stats")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to retrieve history"})
		return
	}
	if stats == nil {
		stats = []types.DailyStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}
