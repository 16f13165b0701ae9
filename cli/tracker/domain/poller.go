package domain

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

type LineProvider interface {
	Get() []int32
}

// Poller периодически запускает цикл опроса линий.
type Poller struct {
	SavePositions *SavePositions
	Lines         LineProvider
	Interval      time.Duration
}

// Run выполняет первый цикл сразу, затем с периодом Interval. Возвращается после
// отмены ctx, дождавшись текущего цикла.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
			t.Reset(interval)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	lines := p.Lines.Get()
	if len(lines) == 0 {
		log.Warn("Перечень линий пуст, цикл опроса пропущен")
		return
	}

	start := time.Now()
	stats := p.SavePositions.RunCycle(ctx, lines)
	log.WithFields(log.Fields{
		"lines":        stats.Lines,
		"failed_lines": stats.FailedLines,
		"received":     stats.Received,
		"inserted":     stats.Inserted,
		"duplicates":   stats.Duplicates,
		"store_errors": stats.StoreErrors,
		"elapsed":      time.Since(start).Round(time.Millisecond),
	}).Info("Цикл опроса завершён")
}
