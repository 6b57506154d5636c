package poller_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/uct-network/uct-ledger/internal/utils/poller"
)

func TestPoller(t *testing.T) {
	var calls atomic.Int32
	p := poller.NewPoller("test", 10*time.Millisecond, func(ctx context.Context) error {
		if calls.Add(1)%2 == 0 {
			return errors.New("failing poll keeps the poller running")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
