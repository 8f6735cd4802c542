// Package executor содержит исполнители задач планировщика.
//
// # Обзор
//
// Executor — единица работы, выбираемая по строковому типу:
//
//	type Executor interface {
//	    Type() string
//	    ValidateParams(params map[string]any) error
//	    Execute(ctx context.Context, taskID string, params map[string]any) *Result
//	}
//
// ValidateParams не имеет побочных эффектов и отклоняет только
// отсутствующие или выходящие за диапазон поля. Ожидаемые ошибки
// выполнения (не найден контент, отказ внешнего API) возвращаются
// как Result с Success = false и кодом ошибки, а не паникой.
//
// # Registry
//
//	reg := executor.NewRegistry()
//	reg.Register(executor.NewPublishing(pool))
//	exec := reg.Get("publishing") // nil, если тип не зарегистрирован
//
// # Типы
//
//   - content_generation   — создаёт задачу генерации и передаёт её воркерам
//   - add_to_pool          — ставит контент в пул публикаций
//   - publishing           — публикует готовые записи пула (или одну по entry_id)
//   - publish_pool_scanner — выбирает записи и делегирует каждую publishing
//   - workflow             — последовательная цепочка шагов с общим контекстом
//
// Run оборачивает вызов: проверяет параметры, перехватывает панику
// и заполняет Duration.
package executor
