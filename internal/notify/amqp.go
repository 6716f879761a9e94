package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultQueue = "notifications.create"

// AMQPEmitter publishes each message as JSON to a durable RabbitMQ queue;
// delivery workers consume from there.
type AMQPEmitter struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewAMQPEmitter(url, queue string) (*AMQPEmitter, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPEmitter{conn: conn, channel: channel, queue: queue}, nil
}

func (e *AMQPEmitter) Emit(ctx context.Context, m Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return e.channel.PublishWithContext(
		ctx,
		"",      // exchange
		e.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    m.ID,
			Type:         m.Kind,
			Body:         body,
			Timestamp:    m.CreatedAt,
		},
	)
}

func (e *AMQPEmitter) Close() error {
	if e.channel != nil {
		e.channel.Close()
	}
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}
