package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"taskboard/internal/config"
	"taskboard/internal/entitystore"
	"taskboard/internal/service"
	"taskboard/internal/store"
)

// App wires configuration, persistence, services and stores together.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Adapter *store.Adapter

	Tasks *service.TaskService
	Users *service.UserService

	TaskStore *entitystore.TaskStore
	UserStore *entitystore.UserStore

	closers []io.Closer
}

// NewApp builds an App from cfg. The caller must Close it.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kv, closer, err := openLocalKV(cfg.Local)
	if err != nil {
		return nil, err
	}

	var remote store.Backend
	if cfg.Remote.Configured() {
		remote = store.NewRemoteBackend(cfg.Remote, nil)
	}

	adapter := store.NewAdapter(remote, store.NewLocalBackend(kv), cfg.Remote.Configured,
		store.WithTimeout(cfg.App.BackendTimeout),
		store.WithLogger(logger),
	)

	tasks := service.NewTaskService(adapter)
	users := service.NewUserService(adapter)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Adapter:   adapter,
		Tasks:     tasks,
		Users:     users,
		TaskStore: entitystore.NewTaskStore(tasks),
		UserStore: entitystore.NewUserStore(users),
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	logger.Debug("app ready",
		"remote", cfg.Remote.Configured(),
		"local_store", cfg.Local.Driver,
	)
	return app, nil
}

// Close releases the local store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openLocalKV opens the configured local driver. The none driver yields a
// nil KV, so every local operation fails with ErrEnvironmentUnavailable.
func openLocalKV(cfg config.Local) (store.KV, io.Closer, error) {
	switch cfg.Driver {
	case config.LocalSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		kv, err := store.NewSQLiteKV(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv, nil
	case config.LocalRedis:
		kv := store.NewRedisKV(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		return kv, kv, nil
	case config.LocalMemory:
		return store.NewMemoryKV(), nil, nil
	case config.LocalNone:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown local store %q", cfg.Driver)
	}
}

// openFromEnv loads configuration, sets up logging and builds the App.
func openFromEnv(opts *RootOptions) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger := newLogger(cfg, opts.Verbose)
	slog.SetDefault(logger)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return app, nil
}

func newLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
