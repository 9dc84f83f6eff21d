package outbox_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"tasktrack/infrastructure/outbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStore struct {
	mu       sync.Mutex
	messages map[string]*outbox.Message
	claimed  map[string]bool // ids another worker already holds
	cutoffs  []time.Time
}

func newFakeStore(msgs ...outbox.Message) *fakeStore {
	s := &fakeStore{messages: map[string]*outbox.Message{}, claimed: map[string]bool{}}
	for i := range msgs {
		m := msgs[i]
		m.Status = outbox.StatusPending
		s.messages[m.ID] = &m
	}
	return s
}

func (s *fakeStore) PendingMessages(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Message
	for _, m := range s.messages {
		if m.Status == outbox.StatusPending {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) MarkProcessing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messages[id]
	if s.claimed[id] || m.Status != outbox.StatusPending {
		return outbox.ErrNotClaimable
	}
	m.Status = outbox.StatusProcessing
	return nil
}

func (s *fakeStore) MarkPublished(_ context.Context, id string) error {
	return s.set(id, func(m *outbox.Message) { m.Status = outbox.StatusPublished })
}

func (s *fakeStore) ReleaseProcessing(_ context.Context, id string) error {
	return s.set(id, func(m *outbox.Message) { m.Status = outbox.StatusPending })
}

func (s *fakeStore) MarkFailed(_ context.Context, id string, maxRetries int) error {
	return s.set(id, func(m *outbox.Message) {
		m.Status, m.RetryCount = outbox.NextFailureStatus(m.RetryCount, maxRetries)
	})
}

// ReclaimStale treats every processing message as stale.
func (s *fakeStore) ReclaimStale(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	n := 0
	for _, m := range s.messages {
		if m.Status == outbox.StatusProcessing {
			m.Status = outbox.StatusPending
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) set(id string, fn func(m *outbox.Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.messages[id])
	return nil
}

func (s *fakeStore) get(id string) outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.messages[id]
}

type fakePublisher struct {
	fail      map[string]bool
	published []string
}

func (p *fakePublisher) Publish(_ context.Context, msg outbox.Message) error {
	if p.fail[msg.ID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, msg.ID)
	return nil
}

type countingObserver struct {
	published, failed int
}

func (o *countingObserver) OutboxPublished(string) { o.published++ }
func (o *countingObserver) OutboxFailed(string)    { o.failed++ }

func workerConfig() outbox.WorkerConfig {
	return outbox.WorkerConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10, MaxRetries: 2}
}

func TestNewWorkerValidatesConfig(t *testing.T) {
	store, pub := newFakeStore(), &fakePublisher{}

	_, err := outbox.NewWorker(nil, pub, workerConfig())
	assert.Error(t, err)
	_, err = outbox.NewWorker(store, nil, workerConfig())
	assert.Error(t, err)

	cfg := workerConfig()
	cfg.BatchSize = 0
	_, err = outbox.NewWorker(store, pub, cfg)
	assert.Error(t, err)

	cfg = workerConfig()
	cfg.PollInterval = 0
	_, err = outbox.NewWorker(store, pub, cfg)
	assert.Error(t, err)

	cfg = workerConfig()
	cfg.ClaimLease = -time.Second
	_, err = outbox.NewWorker(store, pub, cfg)
	assert.Error(t, err)
}

func TestProcessBatchReclaimsStuckMessages(t *testing.T) {
	store := newFakeStore(outbox.Message{ID: "1", EventType: "task.created"})
	store.messages["1"].Status = outbox.StatusProcessing
	pub := &fakePublisher{}

	w, err := outbox.NewWorker(store, pub, workerConfig())
	require.NoError(t, err)
	n, err := w.ProcessBatch(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.cutoffs)

	cfg := workerConfig()
	cfg.ClaimLease = time.Minute
	w, err = outbox.NewWorker(store, pub, cfg)
	require.NoError(t, err)
	n, err = w.ProcessBatch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"1"}, pub.published)
	require.Len(t, store.cutoffs, 1)
	assert.WithinDuration(t, time.Now().Add(-time.Minute), store.cutoffs[0], 5*time.Second)
}

func TestProcessBatchPublishesAndRetries(t *testing.T) {
	store := newFakeStore(
		outbox.Message{ID: "1", EventType: "task.created"},
		outbox.Message{ID: "2", EventType: "task.completed"},
		outbox.Message{ID: "3", EventType: "task.removed"},
	)
	store.claimed["3"] = true
	pub := &fakePublisher{fail: map[string]bool{"2": true}}
	obs := &countingObserver{}

	w, err := outbox.NewWorker(store, pub, workerConfig(), outbox.WithWorkerObserver(obs))
	require.NoError(t, err)

	n, err := w.ProcessBatch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"1"}, pub.published)
	assert.Equal(t, outbox.StatusPublished, store.get("1").Status)

	failed := store.get("2")
	assert.Equal(t, outbox.StatusPending, failed.Status)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, outbox.StatusPending, store.get("3").Status)

	// Second failure reaches MaxRetries.
	_, err = w.ProcessBatch(t.Context())
	require.NoError(t, err)
	failed = store.get("2")
	assert.Equal(t, outbox.StatusFailed, failed.Status)
	assert.Equal(t, 2, failed.RetryCount)

	assert.Equal(t, 1, obs.published)
	assert.Equal(t, 2, obs.failed)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newFakeStore(outbox.Message{ID: "1", EventType: "task.created"})
	pub := &fakePublisher{}
	core, logs := observer.New(zap.InfoLevel)

	w, err := outbox.NewWorker(store, pub, workerConfig(), outbox.WithWorkerLogger(zap.New(core)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return store.get("1").Status == outbox.StatusPublished
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, logs.FilterMessage("Outbox worker started").Len())
	assert.Equal(t, 1, logs.FilterMessage("Outbox worker stopped").Len())
}

func TestNextFailureStatus(t *testing.T) {
	status, count := outbox.NextFailureStatus(0, 3)
	assert.Equal(t, outbox.StatusPending, status)
	assert.Equal(t, 1, count)

	status, count = outbox.NextFailureStatus(2, 3)
	assert.Equal(t, outbox.StatusFailed, status)
	assert.Equal(t, 3, count)
}
