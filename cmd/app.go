package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	appproject "tasktrack/application/project"
	apptask "tasktrack/application/task"
	"tasktrack/config"
	"tasktrack/infrastructure/outbox"
	"tasktrack/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App Application structure
type App struct {
	cfg      *config.Config
	server   *http.Server
	worker   *outbox.Worker
	tasks    *apptask.ApplicationService
	projects *appproject.ApplicationService
	closers  []func(context.Context) error
}

// Tasks exposes the task use cases.
func (a *App) Tasks() *apptask.ApplicationService { return a.tasks }

// Projects exposes the project use cases.
func (a *App) Projects() *appproject.ApplicationService { return a.projects }

// Handler returns the operations HTTP handler.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves the operations endpoint and relays the outbox until ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if a.cfg.App.SeedDemo {
		if err := SeedDemo(ctx, a.projects, a.tasks); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", zap.String("addr", a.server.Addr), zap.String("env", a.cfg.App.Env))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error { return a.RunWorker(gctx) })
	}

	err := g.Wait()
	logger.Info("Server exited")
	return err
}

// RunWorker relays the outbox until ctx is done. It is a no-op when the relay is disabled.
func (a *App) RunWorker(ctx context.Context) error {
	if a.worker == nil {
		logger.Info("Outbox worker is disabled by config")
		return nil
	}
	if err := a.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("outbox worker exited with error: %w", err)
	}
	return nil
}

// Close releases the database, the publisher and the tracer provider.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("Failed to release resource", zap.Error(err))
		}
	}
	a.closers = nil
	_ = logger.Sync()
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
