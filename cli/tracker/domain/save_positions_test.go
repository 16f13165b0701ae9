package domain

import (
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/daniil11ru/bus-tracker/cli/tracker/connector/implementation"
	"github.com/daniil11ru/bus-tracker/cli/tracker/feed"
	"github.com/daniil11ru/bus-tracker/cli/tracker/repository/primary"
	"github.com/daniil11ru/bus-tracker/cli/tracker/source"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(ioutil.Discard)
}

type fakeFeed struct {
	mu        sync.Mutex
	calls     []int32
	positions map[int32][]feed.RawPosition
	failures  map[int32]error
	onFetch   func(lineID int32)
}

func (f *fakeFeed) FetchPositions(ctx context.Context, lineID int32) ([]feed.RawPosition, error) {
	f.mu.Lock()
	f.calls = append(f.calls, lineID)
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch(lineID)
	}
	if err, ok := f.failures[lineID]; ok {
		return nil, err
	}
	return f.positions[lineID], nil
}

func (f *fakeFeed) called() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int32(nil), f.calls...)
}

func newTestRepository(t *testing.T) *primary.PrimaryRepository {
	t.Helper()

	c := &implementation.Connector{}
	require.NoError(t, c.Connect(map[string]string{
		"driver": implementation.DriverSQLite,
		"path":   filepath.Join(t.TempDir(), "positions.db"),
	}))
	t.Cleanup(func() { _ = c.Close() })

	store, err := source.NewDefaultPrimary(c)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))

	return &primary.PrimaryRepository{Source: store}
}

func linesUpTo(n int32) []int32 {
	lines := make([]int32, 0, n)
	for i := int32(1); i <= n; i++ {
		lines = append(lines, i)
	}
	return lines
}

func TestRunCyclePartialFailureIsolation(t *testing.T) {
	repo := newTestRepository(t)
	f := &fakeFeed{
		positions: map[int32][]feed.RawPosition{},
		failures: map[int32]error{
			3: &feed.FetchError{LineID: 3, Kind: feed.KindTransport, Err: errors.New("connection reset")},
		},
	}
	for _, line := range linesUpTo(10) {
		f.positions[line] = []feed.RawPosition{{VehicleID: 100 + line, Latitude: "-25.3", Longitude: "-57.6", ReportTime: "08:00:00"}}
	}

	d := &SavePositions{Feed: f, Repository: repo}
	stats := d.RunCycle(context.Background(), linesUpTo(10))

	assert.Equal(t, linesUpTo(10), f.called())
	assert.Equal(t, 10, stats.Lines)
	assert.Equal(t, 1, stats.FailedLines)
	assert.Equal(t, 9, stats.Inserted)

	stored, err := repo.GetLatestPositions(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, stored, 9)
	for _, p := range stored {
		assert.NotEqual(t, int32(3), p.LineID)
	}
}

func TestRunCycleMalformedPayloadInsertsNothing(t *testing.T) {
	repo := newTestRepository(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":true}`))
	}))
	defer srv.Close()

	d := &SavePositions{Feed: feed.NewClient(srv.URL, "", time.Second, 0), Repository: repo}
	stats := d.RunCycle(context.Background(), []int32{1})

	assert.Equal(t, 1, stats.FailedLines)
	assert.Equal(t, 0, stats.Inserted)
	count, err := repo.CountPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRunCycleEndToEnd(t *testing.T) {
	repo := newTestRepository(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("linea") != "5" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"positions":[{"vehicleId":42,"lat":"-25.3","lon":"-57.6","hora":"08:00:00"}]}`))
	}))
	defer srv.Close()

	capturedAt := time.Date(2024, time.March, 1, 11, 0, 0, 0, time.UTC)
	savedNow := now
	now = func() time.Time { return capturedAt }
	defer func() { now = savedNow }()

	d := &SavePositions{Feed: feed.NewClient(srv.URL, "", time.Second, 0), Repository: repo}
	ctx := context.Background()

	first := d.RunCycle(ctx, []int32{5})
	assert.Equal(t, 1, first.Inserted)

	second := d.RunCycle(ctx, []int32{5})
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)

	query := &GetLatestPositions{Repository: repo}
	positions, err := query.Run(ctx, 10)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, capturedAt, p.CapturedAt)
	assert.Equal(t, int32(5), p.LineID)
	assert.Equal(t, int32(42), p.VehicleID)
	assert.Equal(t, "-25.3", p.Latitude)
	assert.Equal(t, "-57.6", p.Longitude)
	assert.Equal(t, "08:00:00", p.ReportTime)
}

func TestRunCycleStampsIngestionTime(t *testing.T) {
	repo := newTestRepository(t)
	f := &fakeFeed{positions: map[int32][]feed.RawPosition{
		1: {
			{VehicleID: 1, Latitude: "1", Longitude: "2", ReportTime: "23:59:59"},
			{VehicleID: 2, Latitude: "1", Longitude: "2", ReportTime: "00:00:01"},
		},
	}}

	capturedAt := time.Date(2024, time.June, 2, 15, 4, 5, 0, time.UTC)
	savedNow := now
	now = func() time.Time { return capturedAt }
	defer func() { now = savedNow }()

	(&SavePositions{Feed: f, Repository: repo}).RunCycle(context.Background(), []int32{1})

	positions, err := repo.GetLatestPositions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	for _, p := range positions {
		assert.Equal(t, capturedAt, p.CapturedAt)
	}
}

func TestRunCycleStopsDispatchingAfterCancel(t *testing.T) {
	repo := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())

	f := &fakeFeed{positions: map[int32][]feed.RawPosition{}}
	for _, line := range linesUpTo(5) {
		f.positions[line] = []feed.RawPosition{{VehicleID: line, Latitude: "1", Longitude: "2", ReportTime: "10:00:00"}}
	}
	// остановка приходит во время запроса по первой линии
	f.onFetch = func(lineID int32) {
		if lineID == 1 {
			cancel()
		}
	}

	stats := (&SavePositions{Feed: f, Repository: repo}).RunCycle(ctx, linesUpTo(5))

	assert.Equal(t, []int32{1}, f.called())
	assert.Equal(t, 1, stats.Inserted)
	count, err := repo.CountPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRunCycleCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFeed{}
	stats := (&SavePositions{Feed: f, Repository: newTestRepository(t)}).RunCycle(ctx, linesUpTo(3))

	assert.Empty(t, f.called())
	assert.Equal(t, 0, stats.Lines)
}

func TestRunCycleConcurrentWorkers(t *testing.T) {
	repo := newTestRepository(t)
	f := &fakeFeed{positions: map[int32][]feed.RawPosition{}}
	for _, line := range linesUpTo(8) {
		// одинаковые отметки в каждой линии различаются только линией
		f.positions[line] = []feed.RawPosition{
			{VehicleID: 1, Latitude: "1", Longitude: "2", ReportTime: "10:00:00"},
			{VehicleID: 1, Latitude: "1", Longitude: "2", ReportTime: "10:00:00"},
		}
	}

	d := NewSavePositions(f, repo, 0, 4, time.Second)
	stats := d.RunCycle(context.Background(), linesUpTo(8))

	assert.ElementsMatch(t, linesUpTo(8), f.called())
	assert.Equal(t, 8, stats.Inserted)
	assert.Equal(t, 8, stats.Duplicates)
}

func TestRunCycleAppliesRequestDelay(t *testing.T) {
	f := &fakeFeed{}
	d := NewSavePositions(f, newTestRepository(t), 20*time.Millisecond, 1, time.Second)

	start := time.Now()
	d.RunCycle(context.Background(), linesUpTo(3))

	assert.GreaterOrEqual(t, int64(time.Since(start)), int64(40*time.Millisecond))
}

func TestRunCycleSlowFetchKeepsInsertBudget(t *testing.T) {
	repo := newTestRepository(t)
	f := &fakeFeed{positions: map[int32][]feed.RawPosition{
		1: {
			{VehicleID: 1, Latitude: "1", Longitude: "2", ReportTime: "10:00:00"},
			{VehicleID: 2, Latitude: "1", Longitude: "2", ReportTime: "10:00:00"},
		},
	}}
	// ответ приходит позже LineTimeout, но цикл не останавливали
	f.onFetch = func(int32) { time.Sleep(60 * time.Millisecond) }

	stats := NewSavePositions(f, repo, 0, 1, 50*time.Millisecond).RunCycle(context.Background(), []int32{1})

	assert.Equal(t, 2, stats.Received)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 0, stats.StoreErrors)
}

type blockingFeed struct {
	started chan struct{}
}

func (f *blockingFeed) FetchPositions(ctx context.Context, lineID int32) ([]feed.RawPosition, error) {
	close(f.started)
	<-ctx.Done()
	return nil, &feed.FetchError{LineID: lineID, Kind: feed.KindTransport, Err: ctx.Err()}
}

func TestRunCycleBoundsLineAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &blockingFeed{started: make(chan struct{})}
	go func() {
		<-f.started
		cancel()
	}()

	start := time.Now()
	stats := NewSavePositions(f, newTestRepository(t), 0, 1, 50*time.Millisecond).RunCycle(ctx, linesUpTo(3))

	assert.Equal(t, 1, stats.Lines)
	assert.Equal(t, 1, stats.FailedLines)
	assert.Less(t, int64(time.Since(start)), int64(2*time.Second))
}

func TestRunCycleDelayCountsFromLineEnd(t *testing.T) {
	var (
		mu     sync.Mutex
		starts []time.Time
	)
	f := &fakeFeed{}
	f.onFetch = func(int32) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(40 * time.Millisecond)
	}

	NewSavePositions(f, newTestRepository(t), 30*time.Millisecond, 1, time.Second).RunCycle(context.Background(), linesUpTo(3))

	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		// 40 мс ответа и 30 мс паузы после него
		assert.GreaterOrEqual(t, int64(starts[i].Sub(starts[i-1])), int64(70*time.Millisecond))
	}
}
