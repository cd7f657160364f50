package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/metrics"
	"github.com/dennisdiepolder/calldesk/internal/storage"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const snapshotTimeout = 2 * time.Minute

// StatsSource aggregates calls per employee
type StatsSource interface {
	EmployeeCallStats(ctx context.Context, from, to time.Time) ([]types.EmployeeCallStats, error)
}

// Scheduler runs the daily stats snapshot
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	stats   StatsSource
	archive storage.StatsArchive
	logger  zerolog.Logger
	now     func() time.Time
}

// NewScheduler creates a scheduler; spec is a standard five-field cron
// expression evaluated in UTC
func NewScheduler(spec string, stats StatsSource, archive storage.StatsArchive, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		spec:    spec,
		stats:   stats,
		archive: archive,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		now:     time.Now,
	}
}

// Start registers the snapshot job and starts the cron runner
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.snapshotToday); err != nil {
		return fmt.Errorf("failed to register stats snapshot job %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("scheduler started")
	return nil
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) snapshotToday() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	if _, err := s.Snapshot(ctx, s.now()); err != nil {
		s.logger.Error().Err(err).Msg("stats snapshot failed")
	}
}

// Snapshot archives the per-employee and total call stats of the UTC day
// containing day. Re-running it for the same day overwrites the items.
func (s *Scheduler) Snapshot(ctx context.Context, day time.Time) ([]types.DailyStats, error) {
	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	perEmployee, err := s.stats.EmployeeCallStats(ctx, from, to)
	if err != nil {
		metrics.Get().RecordSnapshot("error")
		return nil, fmt.Errorf("failed to aggregate calls: %w", err)
	}

	items := BuildDailyStats(from.Format(types.DateKeyLayout), perEmployee, s.now().UTC())
	if err := s.archive.SaveDailyStats(ctx, items); err != nil {
		metrics.Get().RecordSnapshot("error")
		return nil, fmt.Errorf("failed to archive stats: %w", err)
	}

	metrics.Get().RecordSnapshot("ok")
	s.logger.Info().
		Str("date", from.Format(types.DateKeyLayout)).
		Int("employees", len(perEmployee)).
		Msg("stats snapshot archived")
	return items, nil
}

// BuildDailyStats turns employee aggregates into archive items plus a TOTAL
// item whose average is weighted by call count
func BuildDailyStats(dateKey string, perEmployee []types.EmployeeCallStats, capturedAt time.Time) []types.DailyStats {
	captured := capturedAt.Format(time.RFC3339)
	items := make([]types.DailyStats, 0, len(perEmployee)+1)

	total := types.DailyStats{
		DateKey:     dateKey,
		EmployeeKey: types.TotalEmployeeKey,
		CapturedAt:  captured,
	}
	var durationSum float64

	for _, e := range perEmployee {
		items = append(items, types.DailyStats{
			DateKey:       dateKey,
			EmployeeKey:   fmt.Sprintf("E#%d", e.EmployeeID),
			EmployeeID:    e.EmployeeID,
			CallCount:     e.CallCount,
			NegativeCount: e.NegativeCount,
			AvgDuration:   e.AvgDuration,
			CapturedAt:    captured,
		})
		total.CallCount += e.CallCount
		total.NegativeCount += e.NegativeCount
		durationSum += e.AvgDuration * float64(e.CallCount)
	}
	if total.CallCount > 0 {
		total.AvgDuration = durationSum / float64(total.CallCount)
	}

	return append(items, total)
}
