package source

import (
	"context"

	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
)

type Primary interface {
	EnsureSchema(ctx context.Context) error
	InsertPosition(ctx context.Context, position types.Position) (bool, error)
	GetLatestPositions(ctx context.Context, limit uint) ([]types.Position, error)
	CountPositions(ctx context.Context) (int64, error)
	GetDaySummaries(ctx context.Context) ([]types.DaySummary, error)
}
