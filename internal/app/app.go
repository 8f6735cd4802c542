// Package app собирает компоненты процесса из конфигурации.
//
// Одни и те же компоненты используются командами worker, scheduler и api;
// команда решает, какие циклы запускать (RunWorkers, RunScheduler, ServeAPI).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oychao1988/content-hub-sub001/internal/config"
	"github.com/oychao1988/content-hub-sub001/internal/executor"
	"github.com/oychao1988/content-hub-sub001/internal/generator"
	"github.com/oychao1988/content-hub-sub001/internal/lock"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/mq"
	"github.com/oychao1988/content-hub-sub001/internal/publishapi"
	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
	"github.com/oychao1988/content-hub-sub001/internal/repo"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/store"
	"github.com/oychao1988/content-hub-sub001/internal/store/memory"
	"github.com/oychao1988/content-hub-sub001/internal/tasks"
	"github.com/oychao1988/content-hub-sub001/internal/webhook"
	"github.com/oychao1988/content-hub-sub001/internal/worker"
)

// Options — что поднимать в процессе.
type Options struct {
	// Memory — хранилище в памяти вместо PostgreSQL (локальный запуск).
	Memory bool

	// Workers — создать пул воркеров. Без него новые задачи остаются
	// pending и выбираются воркерами другого процесса из хранилища.
	Workers bool
}

// App — собранные компоненты процесса.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store     store.Store
	Generator generator.Client
	Results   *result.Handler
	Pool      *publishpool.Service
	Tasks     *tasks.Service
	Registry  *executor.Registry
	Webhook   *webhook.Receiver

	// Workers — nil, если Options.Workers = false.
	Workers *worker.Pool

	// MQ — nil, если RabbitMQ не настроен или недоступен.
	MQ *mq.Connection

	health  func(ctx context.Context) error
	closers []func() error
}

// New подключается к внешним системам и собирает компоненты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics.MustRegister()

	a := &App{Config: cfg, Logger: logger}

	if err := a.openStore(ctx, opts.Memory); err != nil {
		return nil, err
	}
	a.openMQ(ctx)

	var poolNotifier publishpool.Notifier
	var taskNotifier result.Notifier
	if a.MQ != nil {
		n := mq.NewEventNotifier(mq.NewPublisher(a.MQ, logger), logger)
		poolNotifier, taskNotifier = n, n
	}

	a.Pool = publishpool.New(publishpool.Config{
		Store:      a.Store,
		Publisher:  publishapi.NewHTTPClient(cfg.PublishAPI.BaseURL, cfg.PublishAPI.Token, cfg.PublishAPI.Timeout),
		Notifier:   poolNotifier,
		BatchSize:  cfg.Pool.BatchSize,
		MaxRetries: cfg.Pool.MaxRetries,
		Logger:     logger,
	})

	a.Results = result.New(result.Config{
		Store:       a.Store,
		Pool:        a.Pool,
		Notifier:    taskNotifier,
		TaskTimeout: cfg.Tasks.Timeout,
		Logger:      logger,
	})

	a.Generator = generator.NewCLI(generator.Config{
		Binary:        cfg.Generator.Binary,
		BaseArgs:      cfg.Generator.Args,
		CreateTimeout: cfg.Generator.CreateTimeout,
		QueryTimeout:  cfg.Generator.QueryTimeout,
		Logger:        logger,
	})

	var queue tasks.Queue = pollingQueue{}
	if opts.Workers {
		a.Workers = worker.NewPool(worker.Config{
			Workers:       cfg.Worker.Count,
			QueueSize:     cfg.Worker.QueueSize,
			PollInterval:  cfg.Worker.PollInterval,
			PollBatch:     cfg.Worker.PollBatch,
			SubmitTimeout: cfg.Worker.SubmitTimeout,
			StopTimeout:   cfg.Worker.StopTimeout,
			Tasks:         a.Store,
			Generator:     a.Generator,
			Results:       a.Results,
			Logger:        logger,
		})
		queue = a.Workers
	}

	a.Tasks = tasks.New(tasks.Config{
		Store:           a.Store,
		Queue:           queue,
		Results:         a.Results,
		CallbackBaseURL: cfg.Tasks.CallbackBaseURL,
		Logger:          logger,
	})

	a.Registry = executor.DefaultRegistry(a.Tasks, a.Pool, logger)

	a.Webhook = webhook.New(webhook.Config{
		Tasks:   a.Store,
		Results: a.Results,
		Secret:  cfg.Webhook.Secret,
		Logger:  logger,
	})

	return a, nil
}

func (a *App) openStore(ctx context.Context, inMemory bool) error {
	if inMemory {
		a.Store = memory.New()
		a.Logger.Warn("using in-memory store, data is lost on exit")
		return nil
	}

	pool, err := repo.NewPool(ctx, a.Config.Database.URL, a.Config.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	s := repo.NewStore(pool)
	a.Store = s
	a.health = s.Ping
	a.Logger.Info("database connected")
	return nil
}

// openMQ подключается к RabbitMQ, если он настроен.
// Недоступный брокер не мешает запуску: события просто не публикуются.
func (a *App) openMQ(ctx context.Context) {
	if a.Config.RabbitMQ.URL == "" {
		return
	}
	conn, err := mq.NewConnection(ctx, a.Config.RabbitMQ.URL, a.Logger)
	if err != nil {
		a.Logger.Warn("rabbitmq not available, running without events", "error", err)
		return
	}
	a.MQ = conn
	a.closers = append(a.closers, conn.Close)
	a.Logger.Info("rabbitmq connected")
}

// Locker возвращает блокировку для политики перекрытия skip.
// Redis используется, если настроен; иначе блокировка в памяти процесса.
func (a *App) Locker(ctx context.Context) (lock.Locker, error) {
	if a.Config.Redis.Addr == "" {
		return lock.NewMemoryLocker(), nil
	}
	cli, err := lock.NewRedisClient(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, cli.Close)
	return lock.NewRedisLocker(cli, "contenthub:lock:"), nil
}

// Health проверяет зависимости процесса.
func (a *App) Health(ctx context.Context) error {
	if a.health == nil {
		return nil
	}
	return a.health(ctx)
}

// Close освобождает соединения в обратном порядке.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// pollingQueue оставляет задачу pending для воркеров другого процесса.
type pollingQueue struct{}

func (pollingQueue) Submit(string) error { return nil }
