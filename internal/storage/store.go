package storage

import (
	"context"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/types"
)

// CallStore is the durable record of calls and the reference data the desk
// views join against. Aggregate reads are blocking I/O.
type CallStore interface {
	CreateCall(ctx context.Context, call types.Call) (*types.Call, error)
	UpdateCall(ctx context.Context, id uint, patch types.CallPatch) (*types.Call, error)
	DeleteCall(ctx context.Context, id uint) error
	GetCall(ctx context.Context, id uint) (*types.Call, error)
	ListCalls(ctx context.Context) ([]types.Call, error)

	CreateIncident(ctx context.Context, incident types.Incident) (*types.Incident, error)
	CreateSurvey(ctx context.Context, survey types.Survey) (*types.Survey, error)

	DeskView(ctx context.Context) ([]types.DeskViewRow, error)
	IncidentView(ctx context.Context) ([]types.IncidentViewRow, error)

	CountCallsBetween(ctx context.Context, from, to time.Time) (int64, error)
	AverageCallDuration(ctx context.Context) (*float64, error)
	CountNegativeCalls(ctx context.Context) (int64, error)
	EmployeeCallStats(ctx context.Context, from, to time.Time) ([]types.EmployeeCallStats, error)

	Solutions(ctx context.Context) ([]types.Solution, error)
	SolutionsBySubject(ctx context.Context, subject string) ([]types.Solution, error)
}

// StatsArchive keeps daily call summaries
type StatsArchive interface {
	SaveDailyStats(ctx context.Context, stats []types.DailyStats) error
	GetDailyStats(ctx context.Context, dateKey string) ([]types.DailyStats, error)
}
