// Package scheduler запускает исполнители по расписанию.
//
// Scheduler на каждом тике проверяет активные ScheduledTask и для задач
// с истёкшим next_run_at вызывает исполнитель типа task_type. Итог
// каждого запуска пишется в историю (TaskExecution).
//
// Структура:
//   - scheduler.go — тик, запуск задачи, ручной запуск
//   - cron.go      — cron, интервалы и часовые пояса
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Store:    store,
//	    Registry: registry,
//	    Overlap:  scheduler.OverlapSkip, // по умолчанию OverlapAllow
//	    Locker:   locker,
//	    Logger:   logger,
//	})
//
//	go sched.Run(ctx)           // тик раз в TickInterval
//	exec, err := sched.ExecuteNow(ctx, id)
//
// Перекрытие запусков:
//
// Запуски разных задач идут параллельно. По умолчанию (OverlapAllow)
// запуски одной задачи тоже могут перекрываться, если выполнение дольше
// интервала. OverlapSkip пропускает запуск, пока предыдущий держит
// блокировку в Locker (Redis при нескольких процессах).
package scheduler
