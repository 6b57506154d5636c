package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/types"
)

const LedgerEntryCollection = "ledger_entries"

// Well known payload keys
const (
	PayloadWalletAddress = "wallet_address"
	PayloadTxHash        = "tx_hash"
	PayloadBatchID       = "batch_id"
	PayloadStakeID       = "stake_id"
	PayloadStakeTier     = "stake_tier"
	PayloadBurnType      = "burn_type"
	PayloadActivityType  = "activity_type"
	PayloadNetwork       = "network"
	PayloadShortfall     = "shortfall"
	PayloadReason        = "reason"
)

// LedgerEntryDocument is immutable once inserted.
// Amount is the signed headline value (credit > 0, debit < 0) and Deltas is the
// exact effect on every balance bucket, used to rebuild the aggregate.
type LedgerEntryDocument struct {
	ID            string                `bson:"_id" json:"id"`
	UserID        string                `bson:"user_id" json:"user_id"`
	EventType     types.LedgerEventType `bson:"event_type" json:"event_type"`
	Amount        decimal.Decimal       `bson:"amount" json:"amount"`
	Deltas        BalanceDelta          `bson:"deltas" json:"deltas"`
	CorrelationID string                `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	Payload       map[string]string     `bson:"payload,omitempty" json:"payload,omitempty"`
	Breakdown     []string              `bson:"breakdown,omitempty" json:"breakdown,omitempty"`
	CreatedAt     time.Time             `bson:"created_at" json:"created_at"`
}

func NewLedgerEntry(
	userID string,
	eventType types.LedgerEventType,
	amount decimal.Decimal,
	deltas BalanceDelta,
	createdAt time.Time,
) *LedgerEntryDocument {
	return &LedgerEntryDocument{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventType: eventType,
		Amount:    amount,
		Deltas:    deltas,
		CreatedAt: createdAt.UTC(),
	}
}

// WithPayload sets a payload key, skipping empty values.
func (e *LedgerEntryDocument) WithPayload(key, value string) *LedgerEntryDocument {
	if value == "" {
		return e
	}
	if e.Payload == nil {
		e.Payload = map[string]string{}
	}
	e.Payload[key] = value
	return e
}
