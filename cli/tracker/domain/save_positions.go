package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/daniil11ru/bus-tracker/cli/tracker/feed"
	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var now = time.Now

type PositionsFeed interface {
	FetchPositions(ctx context.Context, lineID int32) ([]feed.RawPosition, error)
}

type PositionsRepository interface {
	AddPosition(ctx context.Context, position types.Position) (bool, error)
}

// CycleStats итоги одного цикла опроса.
type CycleStats struct {
	Lines       int
	FailedLines int
	Received    int
	Inserted    int
	Duplicates  int
	StoreErrors int
}

func (s *CycleStats) add(o CycleStats) {
	s.Lines += o.Lines
	s.FailedLines += o.FailedLines
	s.Received += o.Received
	s.Inserted += o.Inserted
	s.Duplicates += o.Duplicates
	s.StoreErrors += o.StoreErrors
}

// SavePositions опрашивает линии и сохраняет полученные отметки.
type SavePositions struct {
	Feed       PositionsFeed
	Repository PositionsRepository
	// Workers число линий, опрашиваемых одновременно; 1 - строго по порядку
	Workers int
	// LineTimeout время, отведённое начатой линии на завершение после остановки цикла
	LineTimeout time.Duration

	limiter      *rate.Limiter
	requestDelay time.Duration
	once         sync.Once
}

func NewSavePositions(feed PositionsFeed, repository PositionsRepository, requestDelay time.Duration, workers int, lineTimeout time.Duration) *SavePositions {
	s := &SavePositions{
		Feed:        feed,
		Repository:  repository,
		Workers:     workers,
		LineTimeout: lineTimeout,
	}
	s.limiter = newLimiter(requestDelay)
	s.requestDelay = requestDelay
	return s
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func (d *SavePositions) init() {
	d.once.Do(func() {
		if d.limiter == nil {
			d.limiter = newLimiter(0)
		}
		if d.Workers <= 0 {
			d.Workers = 1
		}
		if d.LineTimeout <= 0 {
			d.LineTimeout = 30 * time.Second
		}
	})
}

// detach отвязывает линию от отмены ctx. Пока ctx жив, срок линии не ограничен
// (запрос ограничен таймаутом HTTP-клиента); после отмены ctx у линии остаётся grace.
func detach(ctx context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	lineCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		time.AfterFunc(grace, cancel)
	})
	return lineCtx, func() {
		stop()
		cancel()
	}
}

// RunCycle обходит линии в заданном порядке. После отмены ctx новые линии не
// запускаются, начатые доводятся до конца.
func (d *SavePositions) RunCycle(ctx context.Context, lineIDs []int32) CycleStats {
	d.init()

	var (
		mu    sync.Mutex
		total CycleStats
		g     errgroup.Group
	)
	g.SetLimit(d.Workers)

	for _, lineID := range lineIDs {
		if ctx.Err() != nil {
			break
		}

		lineID := lineID
		g.Go(func() error {
			// остановка могла прийти, пока линия ждала свободного воркера или паузы
			if err := d.limiter.Wait(ctx); err != nil {
				return nil
			}

			lineCtx, cancel := detach(ctx, d.LineTimeout)
			stats := d.saveLine(lineCtx, lineID)
			cancel()

			mu.Lock()
			total.add(stats)
			mu.Unlock()

			d.pause(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return total
}

// pause выдерживает паузу после линии, не освобождая воркер: при одном воркере
// следующий запрос уходит не раньше чем через requestDelay после ответа.
func (d *SavePositions) pause(ctx context.Context) {
	if d.requestDelay <= 0 {
		return
	}
	t := time.NewTimer(d.requestDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (d *SavePositions) saveLine(ctx context.Context, lineID int32) CycleStats {
	stats := CycleStats{Lines: 1}
	logger := log.WithField("linea", lineID)

	raw, err := d.Feed.FetchPositions(ctx, lineID)
	if err != nil {
		stats.FailedLines = 1
		entry := logger.WithField("err", err)
		var fetchErr *feed.FetchError
		if errors.As(err, &fetchErr) {
			entry = entry.WithField("kind", fetchErr.Kind)
		}
		entry.Error("Не удалось получить отметки по линии")
		return stats
	}

	stats.Received = len(raw)
	capturedAt := now()

	for _, r := range raw {
		position := types.Position{
			CapturedAt: capturedAt,
			LineID:     lineID,
			VehicleID:  r.VehicleID,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			ReportTime: r.ReportTime,
		}

		inserted, err := d.Repository.AddPosition(ctx, position)
		switch {
		case err != nil:
			stats.StoreErrors++
			logger.WithFields(log.Fields{"unidad": r.VehicleID, "err": err}).Error("Не удалось сохранить отметку")
		case inserted:
			stats.Inserted++
		default:
			stats.Duplicates++
		}
	}

	logger.WithFields(log.Fields{
		"received":   stats.Received,
		"inserted":   stats.Inserted,
		"duplicates": stats.Duplicates,
	}).Debug("Линия обработана")

	return stats
}
