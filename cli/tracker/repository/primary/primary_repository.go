package primary

import (
	"context"

	"github.com/daniil11ru/bus-tracker/cli/tracker/source"
	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
	log "github.com/sirupsen/logrus"
)

// Exporter принимает новые отметки для пересылки во внешние хранилища.
type Exporter interface {
	Save(message interface{ ToBytes() ([]byte, error) }) error
}

type PrimaryRepository struct {
	Source       source.Primary
	Exporter     Exporter
	ExportFormat string
}

// AddPosition сохраняет отметку. Пересылается только впервые сохранённая отметка,
// повторы не дублируются во внешних хранилищах.
func (p *PrimaryRepository) AddPosition(ctx context.Context, position types.Position) (bool, error) {
	inserted, err := p.Source.InsertPosition(ctx, position)
	if err != nil || !inserted {
		return inserted, err
	}

	if p.Exporter != nil {
		message := types.PositionMessage{Position: position, Format: p.ExportFormat}
		if err := p.Exporter.Save(message); err != nil {
			log.WithFields(log.Fields{
				"linea":  position.LineID,
				"unidad": position.VehicleID,
				"err":    err,
			}).Warn("Отметка не передана во внешние хранилища")
		}
	}

	return true, nil
}

func (p *PrimaryRepository) GetLatestPositions(ctx context.Context, limit uint) ([]types.Position, error) {
	return p.Source.GetLatestPositions(ctx, limit)
}

func (p *PrimaryRepository) CountPositions(ctx context.Context) (int64, error) {
	return p.Source.CountPositions(ctx)
}

func (p *PrimaryRepository) GetDaySummaries(ctx context.Context) ([]types.DaySummary, error) {
	return p.Source.GetDaySummaries(ctx)
}
