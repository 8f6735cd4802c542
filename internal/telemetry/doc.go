// Package telemetry настраивает логирование процесса.
//
// Все компоненты получают *slog.Logger через свой Config; если он
// не передан, используется slog.Default(), который ставит SetupLogger.
// Метрики живут в пакете metrics.
package telemetry
