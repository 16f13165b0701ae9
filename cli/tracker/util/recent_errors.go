package util

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RecentErrors хук logrus, хранящий последние записи уровня Error и выше.
type RecentErrors struct {
	mu      sync.Mutex
	size    int
	entries []string
}

func NewRecentErrors(size int) *RecentErrors {
	if size <= 0 {
		size = 10
	}
	return &RecentErrors{size: size}
}

func (h *RecentErrors) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel}
}

func (h *RecentErrors) Fire(entry *log.Entry) error {
	line := fmt.Sprintf("[%s] %s", entry.Time.UTC().Format(time.RFC3339), entry.Message)
	if err, ok := entry.Data["err"]; ok {
		line = fmt.Sprintf("%s: %v", line, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, line)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
	return nil
}

// Entries возвращает копию сохранённых записей, от старых к новым.
func (h *RecentErrors) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.entries...)
}
