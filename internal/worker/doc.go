// Package worker выполняет functions по запросам из очереди.
//
// # Обзор
//
// Worker — stateless компонент. Он потребляет очередь runs.requested,
// выполняет function через оркестратор и публикует итог в runs.finished.
// Несколько экземпляров могут потреблять одну очередь.
//
//	w := worker.New(worker.Config{
//	    Runner:    orch,
//	    Publisher: publisher,
//	    Conn:      mqConn,
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Подтверждение сообщений
//
//   - выполнение завершилось (успешно или нет) — итог публикуется, сообщение ack
//   - function не найдена — публикуется FAILED, сообщение ack
//   - хранилище или брокер недоступны, воркер останавливается — сообщение
//     возвращается в очередь (mq.ErrRetry)
//   - битый payload — сообщение уходит в DLQ
//
// Повтор возможен только до публикации итога: доставка at-least-once.
package worker
