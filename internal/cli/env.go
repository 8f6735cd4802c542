package cli

import (
	"context"
	"log/slog"

	"github.com/oychao1988/content-hub-sub001/internal/app"
	"github.com/oychao1988/content-hub-sub001/internal/config"
)

// Env — общее окружение команд, заполняется после парсинга флагов.
type Env struct {
	// Config загружает конфигурацию и настраивает логгер.
	Config func() (*config.Config, *slog.Logger, error)

	// App собирает компоненты процесса.
	App func(ctx context.Context, opts app.Options) (*app.App, error)

	// Output создаёт форматтер вывода.
	Output func() *Output
}
