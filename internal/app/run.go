package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/oychao1988/content-hub-sub001/internal/api"
	"github.com/oychao1988/content-hub-sub001/internal/mq"
	"github.com/oychao1988/content-hub-sub001/internal/poller"
	"github.com/oychao1988/content-hub-sub001/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// RunWorkers запускает пул воркеров, поллер статусов и, если есть
// RabbitMQ, потребителя событий генератора. Блокируется до отмены ctx.
func (a *App) RunWorkers(ctx context.Context) error {
	if a.Workers == nil {
		return errors.New("app built without workers")
	}

	p := poller.New(poller.Config{
		Tasks:       a.Store,
		Generator:   a.Generator,
		Results:     a.Results,
		Interval:    a.Config.Poller.Interval,
		Concurrency: a.Config.Poller.Concurrency,
		Logger:      a.Logger,
	})

	g, ctx := errgroup.WithContext(ctx)

	a.Workers.Start(ctx)
	g.Go(func() error {
		<-ctx.Done()
		a.Workers.Stop()
		return nil
	})

	g.Go(func() error { return p.Run(ctx) })

	if a.MQ != nil {
		consumer := mq.NewGeneratorConsumer(a.MQ, a.Webhook, a.Logger, a.Config.RabbitMQ.Prefetch)
		g.Go(func() error {
			if err := consumer.Run(ctx); err != nil {
				// Без потребителя остаются опрос и HTTP webhook
				a.Logger.Error("generator event consumer stopped", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// NewScheduler создаёт планировщик по конфигурации.
func (a *App) NewScheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	cfg := scheduler.Config{
		Store:        a.Store,
		Registry:     a.Registry,
		Overlap:      a.Config.Scheduler.Overlap,
		LockTTL:      a.Config.Scheduler.LockTTL,
		TickInterval: a.Config.Scheduler.TickInterval,
		Logger:       a.Logger,
	}
	if cfg.Overlap == scheduler.OverlapSkip {
		locker, err := a.Locker(ctx)
		if err != nil {
			return nil, err
		}
		cfg.Locker = locker
	}
	return scheduler.New(cfg), nil
}

// APIHandler собирает HTTP API. sch может быть nil: тогда ручной
// запуск ScheduledTask недоступен.
func (a *App) APIHandler(sch *scheduler.Scheduler) http.Handler {
	cfg := api.Config{
		Tasks:     a.Tasks,
		Webhook:   a.Webhook,
		Pool:      a.Pool,
		Executors: a.Registry,
		Health:    a.Health,
		Metrics:   promhttp.Handler(),
		Logger:    a.Logger,
	}
	if sch != nil {
		cfg.Scheduler = sch
	}
	return api.NewHandler(cfg).Routes()
}

// MetricsHandler — только /healthz и /metrics.
func (a *App) MetricsHandler() http.Handler {
	return api.NewHandler(api.Config{
		Health:  a.Health,
		Metrics: promhttp.Handler(),
		Logger:  a.Logger,
	}).Routes()
}

// Serve обслуживает HTTP до отмены ctx, затем корректно останавливает сервер.
func (a *App) Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
