package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasktrack/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Observer receives relay outcomes.
type Observer interface {
	OutboxPublished(eventType string)
	OutboxFailed(eventType string)
}

type nopObserver struct{}

func (nopObserver) OutboxPublished(string) {}
func (nopObserver) OutboxFailed(string)    {}

type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	// PublishRate limits publishes per second; zero means unlimited.
	PublishRate  float64
	PublishBurst int
	// ClaimLease is how long a message may stay claimed before another worker takes
	// it back; zero disables reclaiming.
	ClaimLease   time.Duration
}

type WorkerOption func(*Worker)

func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithWorkerObserver(o Observer) WorkerOption {
	return func(w *Worker) {
		if o != nil {
			w.observer = o
		}
	}
}

// Worker polls the store and publishes pending messages.
type Worker struct {
	store     Store
	publisher Publisher
	cfg       WorkerConfig
	limiter   *rate.Limiter
	logger    *zap.Logger
	observer  Observer
}

func NewWorker(store Store, publisher Publisher, cfg WorkerConfig, opts ...WorkerOption) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}
	if cfg.ClaimLease < 0 {
		return nil, fmt.Errorf("claim lease must not be negative")
	}

	limit := rate.Inf
	burst := cfg.PublishBurst
	if cfg.PublishRate > 0 {
		limit = rate.Limit(cfg.PublishRate)
		if burst <= 0 {
			burst = 1
		}
	}

	w := &Worker{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger.Named("outbox_worker"),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes batches every poll interval until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("Outbox worker started",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Int("max_retries", w.cfg.MaxRetries),
		zap.Float64("publish_rate", w.cfg.PublishRate))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Outbox worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("Outbox batch processing failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch of pending messages and reports how many were
// published.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	if w.cfg.ClaimLease > 0 {
		n, err := w.store.ReclaimStale(ctx, time.Now().UTC().Add(-w.cfg.ClaimLease))
		if err != nil {
			return 0, err
		}
		if n > 0 {
			w.logger.Warn("Reclaimed stale outbox events", zap.Int("count", n), zap.Duration("lease", w.cfg.ClaimLease))
		}
	}

	msgs, err := w.store.PendingMessages(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, msg := range msgs {
		if err := w.store.MarkProcessing(ctx, msg.ID); err != nil {
			w.logger.Warn("Skip outbox event due to lock contention",
				zap.String("event_id", msg.ID),
				zap.Error(err))
			continue
		}

		if err := w.limiter.Wait(ctx); err != nil {
			// Hand the claimed message back without counting an attempt.
			w.release(msg)
			return published, err
		}

		if err := w.publisher.Publish(ctx, msg); err != nil {
			w.observer.OutboxFailed(msg.EventType)
			w.logger.Warn("Outbox publish failed",
				zap.String("event_id", msg.ID),
				zap.String("event_type", msg.EventType),
				zap.Int("retry_count", msg.RetryCount),
				zap.Error(err))
			if failErr := w.store.MarkFailed(context.WithoutCancel(ctx), msg.ID, w.cfg.MaxRetries); failErr != nil {
				w.logger.Error("Failed to mark outbox event as failed",
					zap.String("event_id", msg.ID),
					zap.Error(failErr))
			}
			continue
		}

		if err := w.store.MarkPublished(context.WithoutCancel(ctx), msg.ID); err != nil {
			w.logger.Error("Failed to mark outbox event as published",
				zap.String("event_id", msg.ID),
				zap.Error(err))
			continue
		}
		w.observer.OutboxPublished(msg.EventType)
		published++
	}
	return published, nil
}

func (w *Worker) release(msg Message) {
	if err := w.store.ReleaseProcessing(context.Background(), msg.ID); err != nil {
		w.logger.Error("Failed to release outbox event",
			zap.String("event_id", msg.ID),
			zap.Error(err))
	}
}
