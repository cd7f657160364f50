// Package desk derives the dashboard views from the call store.
package desk

import (
	"context"
	"sort"

	"github.com/dennisdiepolder/calldesk/internal/types"
)

// Source is the subset of the call store the views are built from
type Source interface {
	DeskView(ctx context.Context) ([]types.DeskViewRow, error)
	IncidentView(ctx context.Context) ([]types.IncidentViewRow, error)
}

// Builder re-derives the views from the store on every call. Nothing is
// cached, so a rebuild always reflects the latest committed writes.
type Builder struct {
	source Source
}

func NewBuilder(source Source) *Builder {
	return &Builder{source: source}
}

// DeskView returns one row per employee ordered by employee id. Store
// errors are returned unchanged.
func (b *Builder) DeskView(ctx context.Context) ([]types.DeskViewRow, error) {
	rows, err := b.source.DeskView(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].EmployeeID < rows[j].EmployeeID
	})
	return rows, nil
}

// IncidentView returns every incident ordered by id
func (b *Builder) IncidentView(ctx context.Context) ([]types.IncidentViewRow, error) {
	rows, err := b.source.IncidentView(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}
