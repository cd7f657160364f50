package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/dennisdiepolder/calldesk/internal/types"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed is the reference data loaded at startup: the employees, clients and
// catalog rows that calls and incidents refer to. Rows are keyed by their
// ids, so applying the same file twice leaves the tables unchanged.
type Seed struct {
	Employees      []types.Employee      `yaml:"employees"`
	Zones          []types.Zone          `yaml:"zones"`
	Clients        []types.Client        `yaml:"clients"`
	Packages       []types.Package       `yaml:"packages"`
	Contracts      []types.Contract      `yaml:"contracts"`
	IncidenceTypes []types.IncidenceType `yaml:"incidenceTypes"`
	Solutions      []types.Solution      `yaml:"solutions"`
}

// LoadSeed reads a YAML seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes YAML seed data
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	for i, sol := range seed.Solutions {
		if sol.ID == 0 {
			return nil, fmt.Errorf("failed to parse seed: solution %d (%q) has no id", i, sol.Name)
		}
	}
	return &seed, nil
}

// ApplySeed upserts the seed rows in a single transaction
func (s *SQLStore) ApplySeed(ctx context.Context, seed *Seed) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := func(rows interface{}) error {
			return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rows).Error
		}

		if len(seed.Zones) > 0 {
			if err := upsert(&seed.Zones); err != nil {
				return fmt.Errorf("zones: %w", err)
			}
		}
		if len(seed.Employees) > 0 {
			if err := upsert(&seed.Employees); err != nil {
				return fmt.Errorf("employees: %w", err)
			}
		}
		if len(seed.Clients) > 0 {
			if err := upsert(&seed.Clients); err != nil {
				return fmt.Errorf("clients: %w", err)
			}
		}
		if len(seed.Packages) > 0 {
			if err := upsert(&seed.Packages); err != nil {
				return fmt.Errorf("packages: %w", err)
			}
		}
		if len(seed.Contracts) > 0 {
			if err := upsert(&seed.Contracts); err != nil {
				return fmt.Errorf("contracts: %w", err)
			}
		}
		if len(seed.IncidenceTypes) > 0 {
			if err := upsert(&seed.IncidenceTypes); err != nil {
				return fmt.Errorf("incidence types: %w", err)
			}
		}

		// Steps carry no ids of their own; replace them wholesale
		for i := range seed.Solutions {
			sol := seed.Solutions[i]
			steps := sol.Steps
			sol.Steps = nil
			if err := upsert(&sol); err != nil {
				return fmt.Errorf("solution %d: %w", sol.ID, err)
			}
			if err := tx.Where("solution_id = ?", sol.ID).Delete(&types.SolutionStep{}).Error; err != nil {
				return fmt.Errorf("solution %d steps: %w", sol.ID, err)
			}
			if len(steps) == 0 {
				continue
			}
			rows := make([]types.SolutionStep, len(steps))
			for j, step := range steps {
				rows[j] = types.SolutionStep{SolutionID: sol.ID, Position: step.Position, Description: step.Description}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("solution %d steps: %w", sol.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return wrap("apply seed", err)
	}

	s.logger.Info().
		Int("employees", len(seed.Employees)).
		Int("clients", len(seed.Clients)).
		Int("solutions", len(seed.Solutions)).
		Msg("seed applied")
	return nil
}
