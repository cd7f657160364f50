package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SQLStore implements CallStore on a relational database through gorm
type SQLStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the configured database and migrates the schema.
// driver is one of sqlite, mysql or postgres.
func Open(driver, dsn string, logger zerolog.Logger) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer at a time, otherwise SQLITE_BUSY under concurrent mutations
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	store := NewSQLStore(db, logger)
	if err := store.Migrate(); err != nil {
		return nil, err
	}

	logger.Info().Str("driver", driver).Msg("call store initialized")
	return store, nil
}

// NewSQLStore wraps an existing gorm handle
func NewSQLStore(db *gorm.DB, logger zerolog.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

// Migrate creates or updates every table the store uses
func (s *SQLStore) Migrate() error {
	err := s.db.AutoMigrate(
		&types.Employee{},
		&types.Zone{},
		&types.Client{},
		&types.Package{},
		&types.Contract{},
		&types.IncidenceType{},
		&types.Call{},
		&types.Incident{},
		&types.Survey{},
		&types.Solution{},
		&types.SolutionStep{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) CreateCall(ctx context.Context, call types.Call) (*types.Call, error) {
	if err := call.Validate(); err != nil {
		return nil, err
	}
	call.ID = 0
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now()
	}
	call.StartedAt = call.StartedAt.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &types.Employee{}, "id = ?", call.EmployeeID, "employeeId"); err != nil {
			return err
		}
		return tx.Create(&call).Error
	})
	if err != nil {
		return nil, wrap("create call", err)
	}
	return &call, nil
}

// UpdateCall applies the non-nil fields of patch and returns the stored row
func (s *SQLStore) UpdateCall(ctx context.Context, id uint, patch types.CallPatch) (*types.Call, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated types.Call
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NewNotFound("call", id)
			}
			return err
		}
		if patch.EmployeeID != nil {
			if err := requireRow(tx, &types.Employee{}, "id = ?", *patch.EmployeeID, "employeeId"); err != nil {
				return err
			}
		}
		if err := tx.Model(&types.Call{}).Where("id = ?", id).Updates(patch.Columns()).Error; err != nil {
			return err
		}
		return tx.First(&updated, id).Error
	})
	if err != nil {
		return nil, wrap("update call", err)
	}
	return &updated, nil
}

func (s *SQLStore) DeleteCall(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&types.Call{}, id)
	if res.Error != nil {
		return wrap("delete call", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewNotFound("call", id)
	}
	return nil
}

func (s *SQLStore) GetCall(ctx context.Context, id uint) (*types.Call, error) {
	var call types.Call
	if err := s.db.WithContext(ctx).First(&call, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFound("call", id)
		}
		return nil, wrap("get call", err)
	}
	return &call, nil
}

func (s *SQLStore) ListCalls(ctx context.Context) ([]types.Call, error) {
	calls := []types.Call{}
	if err := s.db.WithContext(ctx).Order("id").Find(&calls).Error; err != nil {
		return nil, wrap("list calls", err)
	}
	return calls, nil
}

func (s *SQLStore) CreateIncident(ctx context.Context, incident types.Incident) (*types.Incident, error) {
	if err := incident.Validate(); err != nil {
		return nil, err
	}
	incident.ID = 0
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = time.Now()
	}
	incident.CreatedAt = incident.CreatedAt.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &types.IncidenceType{}, "id = ?", incident.IncidenceTypeID, "incidenceTypeId"); err != nil {
			return err
		}
		if err := requireRow(tx, &types.Zone{}, "id = ?", incident.ZoneID, "zoneId"); err != nil {
			return err
		}
		return tx.Create(&incident).Error
	})
	if err != nil {
		return nil, wrap("create incident", err)
	}
	return &incident, nil
}

func (s *SQLStore) CreateSurvey(ctx context.Context, survey types.Survey) (*types.Survey, error) {
	if err := survey.Validate(); err != nil {
		return nil, err
	}
	survey.ID = 0
	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = time.Now()
	}
	survey.CreatedAt = survey.CreatedAt.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &types.Call{}, "id = ?", survey.CallID, "callId"); err != nil {
			return err
		}
		return tx.Create(&survey).Error
	})
	if err != nil {
		return nil, wrap("create survey", err)
	}
	return &survey, nil
}

// DeskView returns one row per employee, ordered by employee id
func (s *SQLStore) DeskView(ctx context.Context) ([]types.DeskViewRow, error) {
	rows := []types.DeskViewRow{}
	if err := s.db.WithContext(ctx).Raw(deskViewQuery).Scan(&rows).Error; err != nil {
		return nil, wrap("desk view", err)
	}
	return rows, nil
}

// IncidentView returns every incident with its type and zone names, ordered by id
func (s *SQLStore) IncidentView(ctx context.Context) ([]types.IncidentViewRow, error) {
	rows := []types.IncidentViewRow{}
	if err := s.db.WithContext(ctx).Raw(incidentViewQuery).Scan(&rows).Error; err != nil {
		return nil, wrap("incident view", err)
	}
	return rows, nil
}

// CountCallsBetween counts calls started in [from, to)
func (s *SQLStore) CountCallsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.Call{}).
		Where("started_at >= ? AND started_at < ?", from.UTC(), to.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count calls", err)
	}
	return n, nil
}

// AverageCallDuration is nil when there are no calls
func (s *SQLStore) AverageCallDuration(ctx context.Context) (*float64, error) {
	var avg sql.NullFloat64
	row := s.db.WithContext(ctx).Model(&types.Call{}).Select("AVG(duration)").Row()
	if err := row.Scan(&avg); err != nil {
		return nil, wrap("average duration", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// CountNegativeCalls counts finished calls whose sentiment is NEGATIVE
func (s *SQLStore) CountNegativeCalls(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.Call{}).
		Where("active = ? AND sentiment = ?", false, types.SentimentNegative).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count negative calls", err)
	}
	return n, nil
}

// EmployeeCallStats groups calls started in [from, to) by employee
func (s *SQLStore) EmployeeCallStats(ctx context.Context, from, to time.Time) ([]types.EmployeeCallStats, error) {
	stats := []types.EmployeeCallStats{}
	err := s.db.WithContext(ctx).Model(&types.Call{}).
		Select("employee_id, COUNT(*) AS call_count, "+
			"SUM(CASE WHEN sentiment = ? THEN 1 ELSE 0 END) AS negative_count, "+
			"AVG(duration) AS avg_duration", types.SentimentNegative).
		Where("started_at >= ? AND started_at < ?", from.UTC(), to.UTC()).
		Group("employee_id").
		Order("employee_id").
		Scan(&stats).Error
	if err != nil {
		return nil, wrap("employee call stats", err)
	}
	return stats, nil
}

func (s *SQLStore) Solutions(ctx context.Context) ([]types.Solution, error) {
	return s.findSolutions(ctx, s.db.WithContext(ctx))
}

// SolutionsBySubject returns the solutions registered for a call subject
func (s *SQLStore) SolutionsBySubject(ctx context.Context, subject string) ([]types.Solution, error) {
	return s.findSolutions(ctx, s.db.WithContext(ctx).Where("subject = ?", subject))
}

func (s *SQLStore) findSolutions(_ context.Context, q *gorm.DB) ([]types.Solution, error) {
	solutions := []types.Solution{}
	err := q.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Order("id").Find(&solutions).Error
	if err != nil {
		return nil, wrap("solutions", err)
	}
	return solutions, nil
}

// requireRow fails with a ValidationError on field when no row of model
// matches the condition.
func requireRow(tx *gorm.DB, model interface{}, cond string, value interface{}, field string) error {
	var n int64
	if err := tx.Model(model).Where(cond, value).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return &types.ValidationError{Field: field, Reason: fmt.Sprintf("%v does not exist", value)}
	}
	return nil
}

// wrap passes domain errors through and marks everything else as a
// persistence failure.
func wrap(op string, err error) error {
	var validation *types.ValidationError
	var notFound *types.NotFoundError
	if errors.As(err, &validation) || errors.As(err, &notFound) {
		return err
	}
	return &types.PersistenceError{Op: op, Err: err}
}
