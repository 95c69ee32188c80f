package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// publisher is the part of *amqp.Channel used to enqueue mail
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueSender enqueues messages on a durable RabbitMQ queue for the Consumer to deliver
type QueueSender struct {
	mu    sync.Mutex
	ch    publisher
	queue string
}

// NewQueueSender opens a channel on conn and declares queue
func NewQueueSender(conn *amqp.Connection, queue string) (*QueueSender, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare mail queue: %w", err)
	}

	return &QueueSender{ch: ch, queue: queue}, nil
}

func (s *QueueSender) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode mail: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	// channels are not safe for concurrent publishing
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ch.PublishWithContext(ctx, "", s.queue, false, false, pub); err != nil {
		return fmt.Errorf("failed to publish mail: %w", err)
	}
	return nil
}

// Close releases the channel when it was opened by NewQueueSender
func (s *QueueSender) Close() error {
	if ch, ok := s.ch.(*amqp.Channel); ok {
		return ch.Close()
	}
	return nil
}

const consumerPrefetch = 10

// Consumer drains the mail queue into a delivering Sender at a bounded rate
type Consumer struct {
	conn     *amqp.Connection
	queue    string
	delivery Sender
	limiter  *rate.Limiter
	recorder DispatchRecorder
	logger   *zap.Logger
}

// NewConsumer creates a consumer sending at most perSecond messages per second
func NewConsumer(conn *amqp.Connection, queue string, delivery Sender, perSecond float64, recorder DispatchRecorder, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:     conn,
		queue:    queue,
		delivery: delivery,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		recorder: recorder,
		logger:   logger,
	}
}

// Run consumes until ctx is cancelled or the connection closes
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare mail queue: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume mail queue: %w", err)
	}

	c.logger.Info("Mail consumer started", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("mail deliveries channel closed")
			}

			if err := c.handle(ctx, d.Body); err != nil {
				if ctx.Err() != nil {
					_ = d.Nack(false, true)
					return nil
				}
				c.logger.Error("Failed to deliver queued mail", zap.Error(err))
				// dropped rather than requeued to avoid hot loops on bad messages
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to decode mail: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := c.delivery.Send(ctx, &msg); err != nil {
		c.recorder.RecordMailDispatch(ctx, resultFailed)
		return err
	}

	c.recorder.RecordMailDispatch(ctx, resultSent)
	return nil
}
