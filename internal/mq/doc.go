// Package mq — транспорт асинхронных запусков functions через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация запросов и итогов выполнения
//   - consumer.go   — потребление очереди с ack/nack
//
// Поток сообщений:
//
//	API ──run.requested──▶ runs.requested ──▶ bricks-worker
//	bricks-worker ──run.finished──▶ runs.finished ──▶ подписчики
//
// Отклонённые запросы попадают в dlq.runs.
package mq
