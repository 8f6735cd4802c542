// ContentHub — оркестрация асинхронной генерации и публикации контента.
//
// Использование:
//
//	contenthub [--config FILE] [--memory] <command>
//
// Команды:
//
//	worker     Пул воркеров, поллер статусов, события генератора из RabbitMQ
//	scheduler  Планировщик периодических задач
//	api        HTTP API (webhook генератора, задачи, ручные запуски)
//	migrate    Миграции БД
//	executors  Список зарегистрированных executor'ов
//
// Конфигурация: YAML (--config), переменные CONTENTHUB_*, локальный .env.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oychao1988/content-hub-sub001/internal/app"
	"github.com/oychao1988/content-hub-sub001/internal/cli"
	"github.com/oychao1988/content-hub-sub001/internal/config"
	"github.com/oychao1988/content-hub-sub001/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string
	var inMemory bool
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "contenthub",
		Short:         "ContentHub — content generation and publishing orchestrator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "memory", false, "Use in-memory store instead of PostgreSQL (local runs)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	loadConfig := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		return cfg, telemetry.SetupLogger(cfg.Log.Format, cfg.Log.Level), nil
	}

	env := cli.Env{
		Config: loadConfig,
		App: func(ctx context.Context, opts app.Options) (*app.App, error) {
			cfg, logger, err := loadConfig()
			if err != nil {
				return nil, err
			}
			opts.Memory = opts.Memory || inMemory
			return app.New(ctx, cfg, logger, opts)
		},
		Output: func() *cli.Output { return cli.NewOutput(jsonOutput) },
	}

	rootCmd.AddCommand(
		cli.NewWorkerCmd(env),
		cli.NewSchedulerCmd(env),
		cli.NewAPICmd(env),
		cli.NewMigrateCmd(env),
		cli.NewExecutorsCmd(env),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
