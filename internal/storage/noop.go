package storage

import (
	"context"

	"github.com/dennisdiepolder/calldesk/internal/types"
)

// NoopArchive is a no-op implementation when DynamoDB is disabled
type NoopArchive struct{}

func NewNoopArchive() *NoopArchive { return &NoopArchive{} }

func (a *NoopArchive) SaveDailyStats(_ context.Context, _ []types.DailyStats) error { return nil }
func (a *NoopArchive) GetDailyStats(_ context.Context, _ string) ([]types.DailyStats, error) {
	return nil, nil
}
