package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
)

type recordingStore struct {
	mu      sync.Mutex
	applied []domain.SyncJob
	failFor map[string]error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{failFor: make(map[string]error)}
}

func (s *recordingStore) ListSyncableMarkets(ctx context.Context) ([]domain.MarketInstance, error) {
	return nil, nil
}

func (s *recordingStore) BindExternalID(ctx context.Context, marketID, externalID string) error {
	return nil
}

func (s *recordingStore) ApplyPriceUpdate(ctx context.Context, job domain.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[job.MarketID]; ok {
		return err
	}
	s.applied = append(s.applied, job)
	return nil
}

func (s *recordingStore) appliedJobs() []domain.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SyncJob, len(s.applied))
	copy(out, s.applied)
	return out
}

func waitForProcessed(t *testing.T, q *Queue, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats := q.Stats()
		if stats.Applied+stats.Failed >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	stats := q.Stats()
	t.Fatalf("queue never processed %d jobs, applied=%d failed=%d", want, stats.Applied, stats.Failed)
}

func TestEnqueueAppliesJobs(t *testing.T) {
	store := newRecordingStore()
	q := New(Config{Capacity: 16, Workers: 2}, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	jobs := []domain.SyncJob{
		{MarketID: "m1", RawOutcomePrices: `["0.6","0.4"]`, InitialPrice: 0.6, YesProbability: 60, NoProbability: 40},
		{MarketID: "m2", RawOutcomePrices: `["0.3","0.7"]`, InitialPrice: 0.3, YesProbability: 30, NoProbability: 70},
	}
	accepted, err := q.Enqueue(jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)

	waitForProcessed(t, q, 2)
	assert.Len(t, store.appliedJobs(), 2)

	stats := q.Stats()
	assert.EqualValues(t, 2, stats.Enqueued)
	assert.EqualValues(t, 2, stats.Applied)
	assert.EqualValues(t, 0, stats.Failed)
}

func TestEnqueueSupersedesPendingJob(t *testing.T) {
	store := newRecordingStore()
	q := New(Config{Capacity: 16, Workers: 1}, store)

	// Sin workers corriendo: los dos enqueues llegan antes de consumir nada.
	stale := domain.SyncJob{MarketID: "m1", InitialPrice: 0.50, YesProbability: 50, NoProbability: 50}
	fresh := domain.SyncJob{MarketID: "m1", InitialPrice: 0.61, YesProbability: 61, NoProbability: 39}

	accepted, err := q.Enqueue([]domain.SyncJob{stale})
	require.NoError(t, err)
	require.Equal(t, 1, accepted)

	accepted, err = q.Enqueue([]domain.SyncJob{fresh})
	require.NoError(t, err)
	require.Equal(t, 1, accepted)
	require.Equal(t, 1, q.BacklogSize())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	waitForProcessed(t, q, 1)

	applied := store.appliedJobs()
	require.Len(t, applied, 1)
	assert.InDelta(t, 0.61, applied[0].InitialPrice, 1e-9)

	stats := q.Stats()
	assert.EqualValues(t, 1, stats.Enqueued)
	assert.EqualValues(t, 1, stats.Superseded)
}

func TestEnqueueNeverBlocksWhenFull(t *testing.T) {
	store := newRecordingStore()
	q := New(Config{Capacity: 2, Workers: 1}, store)

	var jobs []domain.SyncJob
	for i := 0; i < 5; i++ {
		jobs = append(jobs, domain.SyncJob{MarketID: fmt.Sprintf("m%d", i)})
	}

	done := make(chan struct{})
	var accepted int
	var enqErr error
	go func() {
		accepted, enqErr = q.Enqueue(jobs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	assert.Equal(t, 2, accepted)
	assert.Error(t, enqErr)
	assert.Equal(t, 2, q.BacklogSize())
}

func TestWorkerIsolatesFailures(t *testing.T) {
	store := newRecordingStore()
	store.failFor["m2"] = errors.New("db locked")
	q := New(Config{Capacity: 16, Workers: 2}, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	_, err := q.Enqueue([]domain.SyncJob{
		{MarketID: "m1"},
		{MarketID: "m2"},
		{MarketID: "m3"},
	})
	require.NoError(t, err)

	waitForProcessed(t, q, 3)
	assert.Len(t, store.appliedJobs(), 2)

	stats := q.Stats()
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 2, stats.Applied)
}

func TestEnqueueIgnoresEmptyMarketID(t *testing.T) {
	q := New(Config{Capacity: 4, Workers: 1}, newRecordingStore())
	accepted, err := q.Enqueue([]domain.SyncJob{{MarketID: ""}})
	require.NoError(t, err)
	assert.Zero(t, accepted)
	assert.Zero(t, q.BacklogSize())
}

func TestCloseAppliesAcceptedBacklog(t *testing.T) {
	store := newRecordingStore()
	q := New(Config{Capacity: 200, Workers: 4}, store)

	var jobs []domain.SyncJob
	for i := 0; i < 100; i++ {
		jobs = append(jobs, domain.SyncJob{MarketID: fmt.Sprintf("m%d", i), InitialPrice: 0.5})
	}
	accepted, err := q.Enqueue(jobs)
	require.NoError(t, err)
	require.Equal(t, 100, accepted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	q.Close()

	assert.Len(t, store.appliedJobs(), 100)
	assert.Zero(t, q.BacklogSize())
	assert.EqualValues(t, 100, q.Stats().Applied)
}

func TestCancelDrainsAcceptedBacklog(t *testing.T) {
	store := newRecordingStore()
	q := New(Config{Capacity: 200, Workers: 4}, store)

	var jobs []domain.SyncJob
	for i := 0; i < 100; i++ {
		jobs = append(jobs, domain.SyncJob{MarketID: fmt.Sprintf("m%d", i), InitialPrice: 0.5})
	}
	accepted, err := q.Enqueue(jobs)
	require.NoError(t, err)
	require.Equal(t, 100, accepted)

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	cancel()
	q.Wait()

	assert.Len(t, store.appliedJobs(), 100)
	assert.Zero(t, q.BacklogSize())
}

func TestEnqueueAfterCloseIsRejected(t *testing.T) {
	q := New(Config{Capacity: 4, Workers: 1}, newRecordingStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	q.Close()

	accepted, err := q.Enqueue([]domain.SyncJob{{MarketID: "m1"}})
	assert.Zero(t, accepted)
	assert.Error(t, err)

	// Close repetido no debe entrar en pánico ni bloquear.
	q.Close()
}

func TestStopViaContextCancel(t *testing.T) {
	q := New(Config{Capacity: 4, Workers: 3}, newRecordingStore())
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		q.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("workers did not exit on context cancel")
	}
}
