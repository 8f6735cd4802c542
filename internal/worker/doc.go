// Package worker отправляет задачи генерации во внешний генератор.
//
// # Обзор
//
// Pool владеет N воркерами. У каждого воркера своя очередь фиксированной
// ёмкости (FIFO); общей очереди и центральной блокировки нет.
//
//	p := worker.NewPool(worker.Config{
//	    Workers:   3,
//	    QueueSize: 100,
//	    Tasks:     store,
//	    Generator: gen,
//	    Results:   handler,
//	})
//	p.Start(ctx)
//	defer p.Stop()
//
//	if err := p.Submit(taskID); errors.Is(err, worker.ErrQueueFull) {
//	    // задача останется pending и будет подобрана polling'ом
//	}
//
// # Submit
//
// Submit перебирает воркеров по кругу, начиная со следующего после
// предыдущего вызова, и кладёт ID в первую очередь, где есть место.
// Если заполнены все очереди, возвращает ErrQueueFull не блокируясь.
//
// # Цикл воркера
//
//  1. Неблокирующее чтение из своей очереди
//  2. Задача есть: перечитать из хранилища, проверить pending,
//     вызвать генератор (таймаут 30s), записать submitted или failed
//  3. Очереди пусто: выбрать до K pending задач (priority DESC,
//     created_at ASC), положить в свою очередь сколько влезет
//  4. Если ничего не нашлось — спать poll interval
//
// Приоритет соблюдается только при выборке из хранилища; внутри очереди
// порядок FIFO, между воркерами порядок не гарантируется.
//
// # Остановка
//
// Stop сбрасывает флаг running и ждёт выхода каждого цикла не дольше
// StopTimeout. Текущий вызов генератора не прерывается.
package worker
