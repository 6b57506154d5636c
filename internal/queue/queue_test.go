package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"github.com/uct-network/uct-ledger/internal/config"
)

type ackRecorder struct {
	acked    int
	nacked   int
	requeued bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acked++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error {
	return nil
}

func TestHandleDelivery(t *testing.T) {
	cfg := &config.QueueConfig{
		ActivityQueue:     "activity",
		ProcessingTimeout: time.Second,
	}

	tests := []struct {
		name       string
		handlerErr error
		acked      int
		nacked     int
	}{
		{name: "processed", acked: 1},
		{name: "malformed", handlerErr: fmt.Errorf("%w: bad json", ErrMalformedMessage), acked: 1},
		{name: "transient", handlerErr: errors.New("db unavailable"), nacked: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody []byte
			qm := NewQueueManager(cfg, func(ctx context.Context, body []byte) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				gotBody = body
				return tt.handlerErr
			})

			recorder := &ackRecorder{}
			qm.handleDelivery(t.Context(), amqp.Delivery{
				Acknowledger: recorder,
				MessageId:    "msg-1",
				Body:         []byte(`{"user_id":"u1"}`),
			})

			assert.Equal(t, []byte(`{"user_id":"u1"}`), gotBody)
			assert.Equal(t, tt.acked, recorder.acked)
			assert.Equal(t, tt.nacked, recorder.nacked)
			if tt.nacked > 0 {
				assert.True(t, recorder.requeued)
			}
		})
	}
}
