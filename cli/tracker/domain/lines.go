package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// LineSet текущий перечень опрашиваемых линий.
type LineSet struct {
	mu    sync.RWMutex
	lines []int32
}

func NewLineSet(lines []int32) *LineSet {
	s := &LineSet{}
	s.Set(lines)
	return s
}

func (s *LineSet) Get() []int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int32(nil), s.lines...)
}

func (s *LineSet) Set(lines []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append([]int32(nil), lines...)
}

type LinesFeed interface {
	FetchLines(ctx context.Context) ([]int32, error)
}

// RefreshLines обновляет перечень линий из внешнего API. При ошибке
// или пустом ответе сохраняется прежний перечень.
type RefreshLines struct {
	Feed    LinesFeed
	Lines   *LineSet
	Timeout time.Duration
}

func (d *RefreshLines) Run() error {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	lines, err := d.Feed.FetchLines(ctx)
	if err != nil {
		return fmt.Errorf("не удалось обновить перечень линий: %w", err)
	}
	if len(lines) == 0 {
		return fmt.Errorf("внешний API вернул пустой перечень линий")
	}

	d.Lines.Set(lines)
	log.WithField("count", len(lines)).Info("Перечень линий обновлён")
	return nil
}
