package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = `
zones:
  - {id: 1, name: North}
  - {id: 2, name: South}
employees:
  - {id: 1, firstName: Ana, lastName: Ruiz}
  - {id: 2, firstName: Ben, lastName: Ortiz}
  - {id: 7, firstName: Carla, lastName: Mena}
clients:
  - {phone: "555-0001", firstName: Dora, lastName: Lugo, zoneId: 1}
  - {phone: "555-0002", firstName: Eli, lastName: Paz, zoneId: 2}
packages:
  - {id: 1, name: Basic, price: 19.5}
  - {id: 2, name: Plus, price: 29.5}
contracts:
  - {id: 1, phone: "555-0001", packageId: 1, signedAt: 2024-01-10T00:00:00Z}
  - {id: 2, phone: "555-0001", packageId: 2, signedAt: 2025-03-01T00:00:00Z}
incidenceTypes:
  - {id: 1, name: Outage}
solutions:
  - id: 1
    name: Reset router
    subject: internet
    steps:
      - {position: 2, description: Wait one minute}
      - {position: 1, description: Unplug the router}
  - id: 2
    name: Explain invoice
    subject: billing
    steps:
      - {position: 1, description: Open the last invoice}
`

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "calldesk.db")
	store, err := Open("sqlite", dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seed, err := ParseSeed([]byte(testSeed))
	require.NoError(t, err)
	require.NoError(t, store.ApplySeed(context.Background(), seed))
	return store
}

func ptr[T any](v T) *T { return &v }

func mustCreateCall(t *testing.T, s *SQLStore, call types.Call) *types.Call {
	t.Helper()
	created, err := s.CreateCall(context.Background(), call)
	require.NoError(t, err)
	return created
}

func TestCreateCall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateCall(ctx, types.Call{EmployeeID: 7, Phone: "555-0001", Subject: "billing"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.StartedAt.IsZero())
	assert.Nil(t, created.Sentiment)

	got, err := s.GetCall(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "billing", got.Subject)
	assert.Equal(t, uint(7), got.EmployeeID)
}

func TestCreateCallValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  types.Call
		field string
	}{
		{"missing employee", types.Call{Phone: "555-0001", Subject: "billing"}, "employeeId"},
		{"missing phone", types.Call{EmployeeID: 1, Subject: "billing"}, "phone"},
		{"missing subject", types.Call{EmployeeID: 1, Phone: "555-0001"}, "subject"},
		{"negative duration", types.Call{EmployeeID: 1, Phone: "555-0001", Subject: "x", Duration: -1}, "duration"},
		{"unknown employee", types.Call{EmployeeID: 99, Phone: "555-0001", Subject: "billing"}, "employeeId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateCall(ctx, tt.call)
			var verr *types.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	calls, err := s.ListCalls(ctx)
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestUpdateCall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	call := mustCreateCall(t, s, types.Call{EmployeeID: 1, Phone: "555-0001", Subject: "billing", Active: true})

	updated, err := s.UpdateCall(ctx, call.ID, types.CallPatch{
		Active:    ptr(false),
		Duration:  ptr(240),
		Sentiment: ptr(types.SentimentNegative),
	})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, 240, updated.Duration)
	require.NotNil(t, updated.Sentiment)
	assert.Equal(t, types.SentimentNegative, *updated.Sentiment)
	assert.Equal(t, "billing", updated.Subject, "untouched fields keep their value")

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.UpdateCall(ctx, 999, types.CallPatch{Notes: ptr("x")})
		var nf *types.NotFoundError
		assert.True(t, errors.As(err, &nf), "got %v", err)
	})

	t.Run("reassign to unknown employee", func(t *testing.T) {
		_, err := s.UpdateCall(ctx, call.ID, types.CallPatch{EmployeeID: ptr(uint(42))})
		var verr *types.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)

		got, err := s.GetCall(ctx, call.ID)
		require.NoError(t, err)
		assert.Equal(t, uint(1), got.EmployeeID)
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := s.UpdateCall(ctx, call.ID, types.CallPatch{})
		var verr *types.ValidationError
		assert.True(t, errors.As(err, &verr), "got %v", err)
	})
}

func TestDeleteCall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	call := mustCreateCall(t, s, types.Call{EmployeeID: 1, Phone: "555-0001", Subject: "billing"})

	require.NoError(t, s.DeleteCall(ctx, call.ID))

	_, err := s.GetCall(ctx, call.ID)
	var nf *types.NotFoundError
	assert.True(t, errors.As(err, &nf))

	err = s.DeleteCall(ctx, call.ID)
	assert.True(t, errors.As(err, &nf), "second delete reports not found, got %v", err)
}

func TestDeskViewOneRowPerEmployee(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mustCreateCall(t, s, types.Call{EmployeeID: 1, Phone: "555-0002", Subject: "old", StartedAt: base})
	latest := mustCreateCall(t, s, types.Call{EmployeeID: 1, Phone: "555-0001", Subject: "internet", StartedAt: base.Add(time.Hour), Active: true})
	// Same start time as an earlier call: the higher id wins
	mustCreateCall(t, s, types.Call{EmployeeID: 7, Phone: "555-0002", Subject: "first", StartedAt: base})
	tie := mustCreateCall(t, s, types.Call{EmployeeID: 7, Phone: "555-0002", Subject: "second", StartedAt: base})

	rows, err := s.DeskView(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []uint{1, 2, 7}, []uint{rows[0].EmployeeID, rows[1].EmployeeID, rows[2].EmployeeID})

	ana := rows[0]
	require.NotNil(t, ana.CallID)
	assert.Equal(t, latest.ID, *ana.CallID)
	assert.Equal(t, "internet", *ana.Subject)
	assert.Equal(t, int64(2), ana.CallCount)
	assert.Equal(t, "Dora", *ana.ClientFirstName)
	assert.Equal(t, "North", *ana.ZoneName)
	require.NotNil(t, ana.PackageName)
	assert.Equal(t, "Plus", *ana.PackageName, "most recent contract")
	assert.InDelta(t, 29.5, *ana.PackagePrice, 0.001)
	require.NotNil(t, ana.Active)
	assert.True(t, *ana.Active)

	ben := rows[1]
	assert.Nil(t, ben.CallID)
	assert.Nil(t, ben.Subject)
	assert.Zero(t, ben.CallCount)

	carla := rows[2]
	require.NotNil(t, carla.CallID)
	assert.Equal(t, tie.ID, *carla.CallID)
	assert.Nil(t, carla.PackageName, "client without contract")
}

func TestIncidentView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateIncident(ctx, types.Incident{IncidenceTypeID: 1, ZoneID: 2, Description: "fiber cut"})
	require.NoError(t, err)

	rows, err := s.IncidentView(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, created.ID, rows[0].ID)
	assert.Equal(t, "Outage", rows[0].IncidenceName)
	assert.Equal(t, "South", rows[0].ZoneName)
	assert.Equal(t, "fiber cut", rows[0].Description)

	_, err = s.CreateIncident(ctx, types.Incident{IncidenceTypeID: 5, ZoneID: 1})
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "incidenceTypeId", verr.Field)
}

func TestCreateSurvey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	call := mustCreateCall(t, s, types.Call{EmployeeID: 1, Phone: "555-0001", Subject: "billing"})

	survey, err := s.CreateSurvey(ctx, types.Survey{CallID: call.ID, Rating: 4})
	require.NoError(t, err)
	assert.NotZero(t, survey.ID)

	_, err = s.CreateSurvey(ctx, types.Survey{CallID: call.ID + 100, Rating: 4})
	var verr *types.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = s.CreateSurvey(ctx, types.Survey{CallID: call.ID, Rating: 9})
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "rating", verr.Field)
}

func TestAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	avg, err := s.AverageCallDuration(ctx)
	require.NoError(t, err)
	assert.Nil(t, avg, "no calls yet")

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mustCreateCall(t, s, types.Call{EmployeeID: 1, Phone: "555-0001", Subject: "a", StartedAt: day.Add(9 * time.Hour), Duration: 100, Sentiment: ptr(types.SentimentNegative)})
	mustCreateCall(t, s, types.Call{EmployeeID: 1, Phone: "555-0001", Subject: "b", StartedAt: day.Add(10 * time.Hour), Duration: 200, Active: true, Sentiment: ptr(types.SentimentNegative)})
	mustCreateCall(t, s, types.Call{EmployeeID: 2, Phone: "555-0002", Subject: "c", StartedAt: day.Add(11 * time.Hour), Duration: 300, Sentiment: ptr(types.SentimentPositive)})
	mustCreateCall(t, s, types.Call{EmployeeID: 2, Phone: "555-0002", Subject: "d", StartedAt: day.Add(-time.Hour), Duration: 400})

	n, err := s.CountCallsBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	avg, err = s.AverageCallDuration(ctx)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 250.0, *avg, 0.001)

	neg, err := s.CountNegativeCalls(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), neg, "only finished calls count")

	stats, err := s.EmployeeCallStats(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, uint(1), stats[0].EmployeeID)
	assert.Equal(t, int64(2), stats[0].CallCount)
	assert.Equal(t, int64(2), stats[0].NegativeCount)
	assert.InDelta(t, 150.0, stats[0].AvgDuration, 0.001)
	assert.Equal(t, uint(2), stats[1].EmployeeID)
	assert.Equal(t, int64(1), stats[1].CallCount)
	assert.Zero(t, stats[1].NegativeCount)
}

func TestSolutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	all, err := s.Solutions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	internet, err := s.SolutionsBySubject(ctx, "internet")
	require.NoError(t, err)
	require.Len(t, internet, 1)
	require.Len(t, internet[0].Steps, 2)
	assert.Equal(t, "Unplug the router", internet[0].Steps[0].Description)

	none, err := s.SolutionsBySubject(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestApplySeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed, err := ParseSeed([]byte(testSeed))
	require.NoError(t, err)
	require.NoError(t, s.ApplySeed(ctx, seed))

	rows, err := s.DeskView(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	internet, err := s.SolutionsBySubject(ctx, "internet")
	require.NoError(t, err)
	require.Len(t, internet, 1)
	assert.Len(t, internet[0].Steps, 2)
}

func TestParseSeedRequiresSolutionIDs(t *testing.T) {
	_, err := ParseSeed([]byte("solutions:\n  - name: nameless\n    subject: x\n"))
	assert.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", zerolog.Nop())
	assert.Error(t, err)
}
