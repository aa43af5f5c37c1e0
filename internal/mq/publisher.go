package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/bricks/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunRequested MessageType = "run.requested"
	MessageTypeRunFinished  MessageType = "run.finished"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт конверт с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// RunRequestedPayload — запрос на асинхронное выполнение function.
type RunRequestedPayload struct {
	RequestID  uuid.UUID `json:"request_id"`
	FunctionID uuid.UUID `json:"function_id"`
}

// RunFinishedPayload — итог выполнения, запрошенного через runs.requested.
type RunFinishedPayload struct {
	RequestID     uuid.UUID              `json:"request_id"`
	FunctionID    uuid.UUID              `json:"function_id"`
	ExecutionID   uuid.UUID              `json:"execution_id"`
	Status        domain.ExecutionStatus `json:"status"`
	OutputLines   []string               `json:"output_lines"`
	Error         string                 `json:"error,omitempty"`
	FailedBrickID *uuid.UUID             `json:"failed_brick_id,omitempty"`
}

// RunFinishedFromExecution собирает событие завершения.
//
// exec может быть nil, если function не удалось загрузить:
// тогда статус FAILED, а текст ошибки берётся из runErr.
func RunFinishedFromExecution(req RunRequestedPayload, exec *domain.Execution, runErr error) RunFinishedPayload {
	payload := RunFinishedPayload{
		RequestID:   req.RequestID,
		FunctionID:  req.FunctionID,
		Status:      domain.ExecutionStatusFailed,
		OutputLines: []string{},
	}

	if exec != nil {
		payload.ExecutionID = exec.ID
		payload.Status = exec.Status
		payload.Error = exec.Error
		payload.FailedBrickID = exec.FailedBrickID
		if exec.OutputLines != nil {
			payload.OutputLines = exec.OutputLines
		}
	}
	if payload.Error == "" && runErr != nil {
		payload.Error = runErr.Error()
	}

	return payload
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishRunRequested ставит выполнение function в очередь.
// Возвращает ID запроса, который придёт обратно в runs.finished.
// Потребитель: bricks-worker.
func (p *Publisher) PublishRunRequested(ctx context.Context, functionID uuid.UUID) (uuid.UUID, error) {
	payload := RunRequestedPayload{
		RequestID:  uuid.New(),
		FunctionID: functionID,
	}

	msg := NewMessage(MessageTypeRunRequested, payload)
	if err := p.Publish(ctx, ExchangeRuns, RoutingKeyRequested, msg); err != nil {
		return uuid.Nil, err
	}
	return payload.RequestID, nil
}

// PublishRunFinished публикует итог выполнения.
func (p *Publisher) PublishRunFinished(ctx context.Context, payload RunFinishedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyFinished, NewMessage(MessageTypeRunFinished, payload))
}
