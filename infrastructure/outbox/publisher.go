package outbox

import (
	"context"
	"fmt"
	"time"

	"tasktrack/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher delivers a message to the outside world.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// LoggingPublisher writes messages to the log. Used when no broker is configured.
type LoggingPublisher struct {
	logger *zap.Logger
}

func NewLoggingPublisher(l *zap.Logger) *LoggingPublisher {
	if l == nil {
		l = logger.Named("outbox_publisher")
	}
	return &LoggingPublisher{logger: l}
}

func (p *LoggingPublisher) Publish(ctx context.Context, msg Message) error {
	p.logger.Info("Outbox event published",
		zap.String("event_id", msg.ID),
		zap.String("event_type", msg.EventType),
		zap.String("aggregate_id", msg.AggregateID),
		zap.String("payload", msg.Payload),
	)
	return nil
}

// RedisStreamPublisher appends messages to a Redis stream with XADD.
type RedisStreamPublisher struct {
	rdb    goredis.UniversalClient
	stream string
	maxLen int64
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream approximately; zero keeps every entry.
	MaxLen int64
}

// NewRedisStreamPublisher connects to Redis and checks the connection.
func NewRedisStreamPublisher(ctx context.Context, opts RedisOptions) (*RedisStreamPublisher, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStreamPublisherWithClient(rdb, opts.Stream, opts.MaxLen), nil
}

func NewRedisStreamPublisherWithClient(rdb goredis.UniversalClient, stream string, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = "tasktrack.events"
	}
	return &RedisStreamPublisher{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, msg Message) error {
	args := &goredis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":          msg.ID,
			"event_type":        msg.EventType,
			"aggregate_id":      msg.AggregateID,
			"aggregate_type":    msg.AggregateType,
			"aggregate_version": msg.AggregateVersion,
			"payload":           msg.Payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", p.stream, err)
	}
	return nil
}

func (p *RedisStreamPublisher) Stream() string { return p.stream }

// Ping reports whether the Redis server answers.
func (p *RedisStreamPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *RedisStreamPublisher) Close() error {
	return p.rdb.Close()
}
