package cmd

import (
	"context"

	"tasktrack/api/health"
	"tasktrack/config"
	"tasktrack/domain/project"
	"tasktrack/domain/shared"
	"tasktrack/domain/task"
	"tasktrack/infrastructure/outbox"
	"tasktrack/infrastructure/persistence/gormstore"
	"tasktrack/infrastructure/persistence/memory"

	"gorm.io/gorm"
)

// outboxStore is what both the handlers and the relay need from the outbox table.
type outboxStore interface {
	shared.OutboxRepository
	outbox.Store
}

// storage groups the repositories of one backend.
type storage struct {
	sessions shared.SessionFactory
	tasks    task.Repository
	projects project.Repository
	outbox   outboxStore
	ping     health.Checker
	close    func() error
}

func openStorage(cfg *config.Config) (*storage, error) {
	if cfg.Database.Type == "memory" {
		store := memory.NewStore()
		return &storage{
			sessions: store,
			tasks:    memory.NewTaskRepository(store),
			projects: memory.NewProjectRepository(store),
			outbox:   memory.NewOutboxRepository(store),
			ping:     health.CheckerFunc(func(context.Context) error { return nil }),
			close:    func() error { return nil },
		}, nil
	}

	db, err := gormConfig(cfg.Database).Open()
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := gormstore.AutoMigrate(db); err != nil {
			_ = closeDB(db)
			return nil, err
		}
	}
	return &storage{
		sessions: gormstore.NewSessionFactory(db),
		tasks:    gormstore.NewTaskRepository(db),
		projects: gormstore.NewProjectRepository(db),
		outbox:   gormstore.NewOutboxRepository(db),
		ping:     health.CheckerFunc(func(ctx context.Context) error { return gormstore.Ping(ctx, db) }),
		close:    func() error { return closeDB(db) },
	}, nil
}

func gormConfig(db config.DatabaseConfig) *gormstore.Config {
	return &gormstore.Config{
		Driver:          db.Type,
		Host:            db.Host,
		Port:            db.Port,
		Username:        db.Username,
		Password:        db.Password,
		Database:        db.Database,
		SQLitePath:      db.SQLitePath,
		SSLMode:         db.SSLMode,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		LogLevel:        db.LogLevel,
	}
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
