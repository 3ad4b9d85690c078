package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskDesk/internal/auth"
	"taskDesk/internal/calendar"
	"taskDesk/internal/config"
	"taskDesk/internal/handlers"
	"taskDesk/internal/logger"
	"taskDesk/internal/notify"
	"taskDesk/internal/repository/task/inmemory"
	"taskDesk/internal/repository/task/postgres"
	"taskDesk/internal/service"
	"taskDesk/internal/worker"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config     *config.Config
	server     *http.Server
	repository service.TaskRepository
	storage    *postgres.Storage
	redis      *redis.Client
	service    *service.TaskService
	worker     *worker.HolidayAlertWorker
	shutdowns  []func() error
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func() error, 0),
	}
}

// Init builds every dependency. Anything it opened is released by Shutdown,
// including when Init itself fails half way.
func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() error {
		logger.Info("App: flushing logs")
		logger.Sync()
		return nil
	})

	if err := a.initRepository(ctx); err != nil {
		return nil, err
	}
	if err := a.initRedis(ctx); err != nil {
		return nil, err
	}

	holidays, err := a.holidaySource(ctx)
	if err != nil {
		return nil, err
	}
	checker := calendar.NewChecker(holidays, a.config.Calendar.MaxSearchDays)

	var notifier notify.Notifier = notify.Nop{}
	if a.redis != nil {
		notifier = notify.NewRedis(a.redis)
	}

	issuer, err := auth.NewIssuer(a.config.Auth)
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}

	a.service = service.NewTaskService(a.repository, checker, notifier)

	if a.config.Worker.Enabled {
		a.worker, err = worker.NewHolidayAlertWorker(a.repository, checker, notifier,
			a.config.Worker.Schedule, a.config.Worker.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("init worker: %w", err)
		}
	}

	router := handlers.NewRouter(a.config.Server, a.config.Auth, handlers.NewTaskHandler(a.service), issuer)
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("App: initialized",
		zap.String("repository", a.config.Repository.Type),
		zap.String("calendar", a.config.Calendar.Source),
		zap.Bool("redis", a.redis != nil),
		zap.Bool("worker", a.worker != nil))
	return a, nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case "postgres":
		storage, err := postgres.New(ctx, a.config.Database)
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func() error {
			logger.Info("App: closing postgres pool")
			storage.Close()
			return nil
		})
		if a.config.Database.MigrateOnStart {
			if err := storage.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		a.storage = storage
		a.repository = storage
	default:
		a.repository = inmemory.NewTaskStorage()
	}
	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	if !a.config.Redis.Enabled {
		return nil
	}
	opts, err := redis.ParseURL(a.config.Redis.URL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	if a.config.Redis.Password != "" {
		opts.Password = a.config.Redis.Password
	}
	if a.config.Redis.DB != 0 {
		opts.DB = a.config.Redis.DB
	}

	rdb := redis.NewClient(opts)
	a.shutdowns = append(a.shutdowns, func() error {
		logger.Info("App: closing redis client")
		return rdb.Close()
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	a.redis = rdb
	return nil
}

// holidaySource picks the configured calendar and puts the redis cache in front of it.
func (a *App) holidaySource(ctx context.Context) (calendar.Holidays, error) {
	cfg := a.config.Calendar

	var source calendar.Holidays
	switch cfg.Source {
	case "postgres":
		if a.storage == nil {
			return nil, errors.New("calendar source postgres needs the postgres repository")
		}
		source = a.storage
	case "google":
		g, err := calendar.DialGoogle(ctx, cfg.CredentialsFile, cfg.GoogleID)
		if err != nil {
			return nil, fmt.Errorf("init google calendar: %w", err)
		}
		source = g
	default:
		static, err := calendar.StaticFromConfig(cfg.Holidays)
		if err != nil {
			return nil, fmt.Errorf("static holidays: %w", err)
		}
		return static, nil
	}

	if a.redis != nil {
		return calendar.NewCached(source, a.redis, cfg.CacheTTL), nil
	}
	return source, nil
}

// Run serves until ctx is cancelled or a component fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			return a.worker.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("App: shutting down server")
		return a.server.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	if err := a.Shutdown(); err != nil {
		runErr = multierror.Append(runErr, err)
	}
	return runErr
}

// Shutdown releases resources in reverse order of acquisition.
func (a *App) Shutdown() error {
	var result *multierror.Error
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.shutdowns = nil
	return result.ErrorOrNil()
}
