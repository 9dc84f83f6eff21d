package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tasktrack/api"
	"tasktrack/api/health"
	"tasktrack/application"
	appproject "tasktrack/application/project"
	apptask "tasktrack/application/task"
	"tasktrack/config"
	"tasktrack/domain/shared"
	"tasktrack/infrastructure/eventing"
	"tasktrack/infrastructure/metrics"
	"tasktrack/infrastructure/outbox"
	"tasktrack/infrastructure/persistence"
	"tasktrack/infrastructure/persistence/retry"
	"tasktrack/pkg/logger"
	"tasktrack/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// AppBuilder builds an App from configuration
type AppBuilder struct {
	cfg           *config.Config
	registry      *prometheus.Registry
	tracingWriter io.Writer
	logger        *zap.Logger
	skipWorker    bool
}

// NewBuilder creates a new AppBuilder
func NewBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// WithRegistry uses reg instead of a fresh Prometheus registry.
func (b *AppBuilder) WithRegistry(reg *prometheus.Registry) *AppBuilder {
	b.registry = reg
	return b
}

// WithTracingWriter redirects the stdout span exporter.
func (b *AppBuilder) WithTracingWriter(w io.Writer) *AppBuilder {
	b.tracingWriter = w
	return b
}

// WithLogger installs l as the global logger instead of building one from config.
func (b *AppBuilder) WithLogger(l *zap.Logger) *AppBuilder {
	b.logger = l
	return b
}

// WithoutWorker leaves the outbox relay out even when it is enabled in config.
func (b *AppBuilder) WithoutWorker() *AppBuilder {
	b.skipWorker = true
	return b
}

// Build creates the App instance
func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	cfg := b.cfg
	if b.logger != nil {
		logger.Set(b.logger)
	} else if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var closers []func(context.Context) error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i](context.Background())
			}
		}
	}()

	var tracingOpts []tracing.Option
	if b.tracingWriter != nil {
		tracingOpts = append(tracingOpts, tracing.WithWriter(b.tracingWriter))
	}
	tp, shutdownTracing, err := tracing.Init(cfg.Tracing, tracing.Service{
		Name:        cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
	}, tracingOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	closers = append(closers, shutdownTracing)

	reg := b.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := metrics.New(reg)

	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func(context.Context) error { return store.close() })

	registry := shared.NewHandlerRegistry()
	if err := apptask.RegisterHandlers(registry, store.projects, store.outbox, logger.Named("audit")); err != nil {
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}
	dispatcher := eventing.NewDispatcher(registry,
		eventing.WithLogger(logger.Named("dispatcher")),
		eventing.WithObserver(m),
		eventing.WithTracerProvider(tp),
	)
	uows := persistence.NewUnitOfWorkFactory(store.sessions, dispatcher,
		persistence.WithLogger(logger.Named("unit_of_work")),
		persistence.WithObserver(m),
		persistence.WithTracerProvider(tp),
	)

	retryCfg := retry.FromAppConfig(cfg)
	runner := application.RetryFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return retry.ExecuteWithRetry(ctx, retryCfg, fn)
	})
	projects := appproject.NewApplicationService(store.projects, uows,
		appproject.WithRetry(runner),
		appproject.WithDefaultPageLimit(cfg.Pagination.DefaultLimit),
	)
	tasks := apptask.NewApplicationService(store.tasks, store.projects, uows,
		apptask.WithRetry(runner),
		apptask.WithDefaultPageLimit(cfg.Pagination.DefaultLimit),
	)

	checks := map[string]health.Checker{"database": store.ping}

	var worker *outbox.Worker
	if cfg.Outbox.Enabled && !b.skipWorker {
		publisher, closePublisher, err := newPublisher(ctx, cfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func(context.Context) error { return closePublisher() })
		if p, ok := publisher.(*outbox.RedisStreamPublisher); ok {
			checks["redis"] = health.CheckerFunc(p.Ping)
		}

		worker, err = outbox.NewWorker(store.outbox, publisher, outbox.WorkerConfig{
			PollInterval: cfg.Outbox.PollInterval,
			BatchSize:    cfg.Outbox.BatchSize,
			MaxRetries:   cfg.Outbox.MaxRetries,
			PublishRate:  cfg.Outbox.PublishRate,
			PublishBurst: cfg.Outbox.PublishBurst,
			ClaimLease:   cfg.Outbox.ClaimLease,
		}, outbox.WithWorkerLogger(logger.Named("outbox_worker")), outbox.WithWorkerObserver(m))
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox worker: %w", err)
		}
	}

	router := api.NewRouter(cfg, health.NewController(cfg, checks), reg)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Application assembled",
		zap.String("database", cfg.Database.Type),
		zap.Bool("outbox_worker", worker != nil),
		zap.Bool("tracing", cfg.Tracing.Enabled),
	)

	return &App{
		cfg:      cfg,
		server:   server,
		worker:   worker,
		tasks:    tasks,
		projects: projects,
		closers:  closers,
	}, nil
}

func newPublisher(ctx context.Context, cfg *config.Config) (outbox.Publisher, func() error, error) {
	switch cfg.Outbox.Publisher {
	case "redis":
		p, err := outbox.NewRedisStreamPublisher(ctx, outbox.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			MaxLen:   cfg.Redis.StreamMax,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return p, p.Close, nil
	case "log":
		return outbox.NewLoggingPublisher(logger.Named("outbox_publisher")), func() error { return nil }, nil
	default:
		return nil, nil, errors.New("unsupported outbox publisher " + cfg.Outbox.Publisher)
	}
}
