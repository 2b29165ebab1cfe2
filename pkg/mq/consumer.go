package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"curatorhub/pkg/metrics"
	"curatorhub/pkg/otel"
	"curatorhub/pkg/trace"
	"curatorhub/pkg/util"
)

const DefaultMaxRetries = 3

// RetryTracker counts delivery attempts per message.
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type action int

const (
	actionAck action = iota
	actionRequeue
	actionDeadLetter
)

type Consumer struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queue      amqp091.Queue
	router     *Router
	retry      RetryTracker
	maxRetries int64
	logger     *zap.Logger
}

// NewConsumer declares queueName, binds it to every routing key registered
// on router and prepares its dead letter queue.
func NewConsumer(url, exchange, queueName string, router *Router, logger *zap.Logger) (*Consumer, error) {
	if exchange == "" {
		exchange = ExchangeName
	}

	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	if err := DeclareExchange(ch, exchange); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	keys := router.RoutingKeys()
	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	if _, err := DeclareDLQQueue(ch, queueName, keys); err != nil {
		closeAll()
		return nil, err
	}

	if err := ch.Qos(16, 0, false); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.Strings("routing_keys", keys),
		zap.String("queue", queueName),
		zap.String("exchange", exchange),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		router:     router,
		maxRetries: DefaultMaxRetries,
		logger:     logger,
	}, nil
}

// SetRetryTracker enables bounded redelivery: after maxRetries failed
// attempts a message goes to the dead letter exchange.
func (c *Consumer) SetRetryTracker(t RetryTracker, maxRetries int64) {
	c.retry = t
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Start consumes until ctx is cancelled or the channel closes. Every message
// is acked, requeued or dead-lettered.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx,
		c.queue.Name,
		"",
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages", zap.String("queue", c.queue.Name))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(msg.RoutingKey, c.queue.Name, time.Since(start))
	}()

	headers := map[string]interface{}(msg.Headers)
	msgCtx := otel.ExtractMQ(ctx, headers)
	if id, ok := headers[trace.HeaderName].(string); ok && id != "" {
		msgCtx = trace.WithContext(msgCtx, id)
	}
	msgCtx, span := otel.MQConsumeSpan(msgCtx, msg.RoutingKey, c.queue.Name)
	defer span.End()

	handlerErr := c.router.Handle(msgCtx, msg.RoutingKey, msg.Body)

	var attempts int64
	retryKey := util.FormatRetryKey(c.queue.Name, msg.MessageId)
	if handlerErr != nil && c.retry != nil && msg.MessageId != "" {
		n, err := c.retry.IncrementAndGet(msgCtx, retryKey)
		if err != nil {
			c.logger.Warn("Retry counter unavailable", zap.Error(err))
		}
		attempts = n
	}

	switch decide(handlerErr, attempts, c.maxRetries) {
	case actionAck:
		if handlerErr == nil && c.retry != nil && msg.MessageId != "" && msg.Redelivered {
			_ = c.retry.Reset(msgCtx, retryKey)
		}
		if err := msg.Ack(false); err != nil {
			c.logger.Error("Failed to ack message", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
		}

	case actionRequeue:
		span.RecordError(handlerErr)
		c.logger.Warn("Handler error, requeueing",
			zap.String("routing_key", msg.RoutingKey),
			zap.String("queue", c.queue.Name),
			zap.Int64("attempt", attempts),
			zap.Error(handlerErr),
		)
		if err := msg.Nack(false, true); err != nil {
			c.logger.Error("Failed to nack message", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
		}

	case actionDeadLetter:
		span.RecordError(handlerErr)
		span.SetStatus(codes.Error, handlerErr.Error())
		c.logger.Error("Handler failed permanently, sending to DLQ",
			zap.String("routing_key", msg.RoutingKey),
			zap.String("queue", c.queue.Name),
			zap.Int64("attempt", attempts),
			zap.Error(handlerErr),
		)
		if err := publishToDLQ(msgCtx, c.channel, msg, c.queue.Name, handlerErr.Error()); err != nil {
			c.logger.Error("Failed to publish to DLQ, requeueing", zap.Error(err))
			_ = msg.Nack(false, true)
			return
		}
		if c.retry != nil && msg.MessageId != "" {
			_ = c.retry.Reset(msgCtx, retryKey)
		}
		if err := msg.Ack(false); err != nil {
			c.logger.Error("Failed to ack dead-lettered message", zap.Error(err))
		}
	}
}

// decide picks the fate of a delivery. Malformed payloads are dead-lettered
// at once; other failures are requeued until attempts exceed maxRetries.
// Without a retry tracker (attempts == 0) failures are always requeued.
func decide(handlerErr error, attempts, maxRetries int64) action {
	if handlerErr == nil {
		return actionAck
	}
	if _, kind := util.IsRetryableError(handlerErr); kind == "json_decode_error" {
		return actionDeadLetter
	}
	if attempts > maxRetries {
		return actionDeadLetter
	}
	return actionRequeue
}
