package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oychao1988/content-hub-sub001/internal/app"
	"github.com/oychao1988/content-hub-sub001/internal/repo"
)

// NewWorkerCmd — пул воркеров, поллер и потребитель событий генератора.
func NewWorkerCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run worker pool, status poller and generator event consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := env.App(ctx, app.Options{Workers: true})
			if err != nil {
				return err
			}
			defer a.Close()
			a.Logger.Info("starting contenthub worker")

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return a.RunWorkers(ctx) })
			g.Go(func() error { return a.Serve(ctx, a.Config.HTTP.MetricsAddr, a.MetricsHandler()) })

			err = g.Wait()
			a.Logger.Info("contenthub worker stopped")
			return err
		},
	}
}

// NewSchedulerCmd — планировщик периодических задач.
func NewSchedulerCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run scheduler of periodic tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := env.App(ctx, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			a.Logger.Info("starting contenthub scheduler")

			sch, err := a.NewScheduler(ctx)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return sch.Run(ctx) })
			g.Go(func() error { return a.Serve(ctx, a.Config.HTTP.MetricsAddr, a.MetricsHandler()) })

			err = g.Wait()
			a.Logger.Info("contenthub scheduler stopped")
			return err
		},
	}
}

// NewAPICmd — HTTP API. С --all в том же процессе работают воркеры,
// поллер и планировщик (удобно вместе с --memory).
func NewAPICmd(env Env) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Run HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := env.App(ctx, app.Options{Workers: all})
			if err != nil {
				return err
			}
			defer a.Close()
			a.Logger.Info("starting contenthub api", "all_in_one", all)

			// Планировщик нужен API для ручного запуска; тики — только с --all
			sch, err := a.NewScheduler(ctx)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return a.Serve(ctx, a.Config.HTTP.Addr, a.APIHandler(sch)) })
			if all {
				g.Go(func() error { return a.RunWorkers(ctx) })
				g.Go(func() error { return sch.Run(ctx) })
			}

			err = g.Wait()
			a.Logger.Info("contenthub api stopped")
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also run workers, poller and scheduler in this process")
	return cmd
}

// NewMigrateCmd — миграции БД.
func NewMigrateCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{repo.MigrateUp, repo.MigrateDown, repo.MigrateStatus, repo.MigrateVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := repo.MigrateUp
			if len(args) == 1 {
				command = args[0]
			}

			cfg, logger, err := env.Config()
			if err != nil {
				return err
			}

			pool, err := repo.NewPool(cmd.Context(), cfg.Database.URL, cfg.Database.MaxConns)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			return repo.Migrate(cmd.Context(), pool, command, logger)
		},
	}
}

// NewExecutorsCmd — список executor'ов без подключения к БД.
func NewExecutorsCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "executors",
		Short: "List registered executor types",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := env.App(cmd.Context(), app.Options{Memory: true})
			if err != nil {
				return err
			}
			defer a.Close()

			PrintExecutors(env.Output(), a.Registry.List())
			return nil
		},
	}
}
