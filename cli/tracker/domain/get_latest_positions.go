package domain

import (
	"context"

	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
)

const DefaultQueryLimit uint = 100

type LatestPositionsRepository interface {
	GetLatestPositions(ctx context.Context, limit uint) ([]types.Position, error)
}

type GetLatestPositions struct {
	Repository LatestPositionsRepository
	MaxLimit   uint
}

func (d *GetLatestPositions) Run(ctx context.Context, limit uint) ([]types.Position, error) {
	maxLimit := d.MaxLimit
	if maxLimit == 0 {
		maxLimit = DefaultQueryLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	positions, err := d.Repository.GetLatestPositions(ctx, limit)
	if err != nil {
		return nil, err
	}
	if positions == nil {
		positions = []types.Position{}
	}
	return positions, nil
}
