// Package config загружает конфигурацию процесса.
//
// Порядок источников (последний побеждает):
//   - значения по умолчанию (defaults.go)
//   - YAML файл, если передан --config
//   - переменные окружения с префиксом CONTENTHUB_ (worker.count → CONTENTHUB_WORKER_COUNT)
//
// Перед чтением окружения загружается локальный .env, если он есть.
// Результат проверяется тегами validate.
package config
