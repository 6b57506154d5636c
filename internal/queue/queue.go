package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/config"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/observability/tracing"
)

// ErrMalformedMessage marks a message that can never be processed. It is
// acknowledged and dropped instead of being requeued.
var ErrMalformedMessage = errors.New("malformed message")

// MessageHandler processes the body of one delivery.
type MessageHandler func(ctx context.Context, body []byte) error

// QueueManager consumes activity events from an AMQP queue with manual
// acknowledgements, reconnecting after connection loss.
type QueueManager struct {
	cfg     *config.QueueConfig
	handler MessageHandler
}

func NewQueueManager(cfg *config.QueueConfig, handler MessageHandler) *QueueManager {
	return &QueueManager{
		cfg:     cfg,
		handler: handler,
	}
}

// Start consumes until ctx is done.
func (qm *QueueManager) Start(ctx context.Context) {
	log.Info().Str("queue", qm.cfg.ActivityQueue).Msg("Starting activity queue consumer")

	for {
		err := qm.consume(ctx)
		if ctx.Err() != nil {
			return
		}

		log.Error().Err(err).
			Str("queue", qm.cfg.ActivityQueue).
			Dur("reconnect_delay", qm.cfg.ReconnectDelay).
			Msg("Activity queue consumer interrupted, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(qm.cfg.ReconnectDelay):
		}
	}
}

func (qm *QueueManager) consume(ctx context.Context) error {
	conn, err := amqp.Dial(qm.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to queue: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(qm.cfg.ActivityQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", qm.cfg.ActivityQueue, err)
	}
	if err := ch.Qos(qm.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(qm.cfg.ActivityQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %s: %w", qm.cfg.ActivityQueue, err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			return fmt.Errorf("connection closed: %v", amqpErr)
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			qm.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery acks processed and malformed messages and requeues the
// ones that failed for a transient reason.
func (qm *QueueManager) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	msgCtx := tracing.InjectTraceIDWithValue(ctx, delivery.MessageId)
	msgCtx, cancel := context.WithTimeout(msgCtx, qm.cfg.ProcessingTimeout)
	defer cancel()

	err := qm.handler(msgCtx, delivery.Body)

	var ackErr error
	switch {
	case err == nil:
		ackErr = delivery.Ack(false)
		metrics.RecordQueueMessage(qm.cfg.ActivityQueue, "processed")
	case errors.Is(err, ErrMalformedMessage):
		log.Ctx(msgCtx).Warn().Err(err).Msg("Dropping malformed activity message")
		ackErr = delivery.Ack(false)
		metrics.RecordQueueMessage(qm.cfg.ActivityQueue, "dropped")
	default:
		log.Ctx(msgCtx).Error().Err(err).Msg("Failed to process activity message, requeueing")
		ackErr = delivery.Nack(false, true)
		metrics.RecordQueueMessage(qm.cfg.ActivityQueue, "requeued")
	}

	if ackErr != nil {
		log.Ctx(msgCtx).Error().Err(ackErr).Msg("Failed to acknowledge activity message")
	}
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	log.Info().Msg("Shutting down queue manager")
}
