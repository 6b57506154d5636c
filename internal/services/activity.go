package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/queue"
	"github.com/uct-network/uct-ledger/internal/types"
)

// HandleActivityMessage credits an activity event received from the queue
// through the same idempotent path as the http endpoint. Messages that can
// never succeed are reported as malformed so the consumer drops them.
func (s *Service) HandleActivityMessage(ctx context.Context, body []byte) error {
	var event ActivityEvent
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&event); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrMalformedMessage, err)
	}

	result, err := s.ComputeAndApplyReward(ctx, event)
	if err != nil {
		if apiErr := types.AsError(err); apiErr != nil &&
			apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError {
			return fmt.Errorf("%w: %v", queue.ErrMalformedMessage, err)
		}
		return err
	}

	log.Ctx(ctx).Debug().
		Str("user_id", event.UserID).
		Str("ledger_id", event.LedgerID).
		Stringer("total_reward", result.TotalReward).
		Bool("replayed", result.Replayed).
		Msg("activity message processed")
	return nil
}
