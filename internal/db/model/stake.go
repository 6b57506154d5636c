package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/types"
)

const StakeCollection = "stakes"

// StakeDocument keeps the amount locked at stake time so that a later tier
// repricing never changes what is returned on unstake.
type StakeDocument struct {
	ID         string            `bson:"_id" json:"id"`
	UserID     string            `bson:"user_id" json:"user_id"`
	Tier       string            `bson:"stake_tier" json:"stake_tier"`
	Amount     decimal.Decimal   `bson:"amount" json:"amount"`
	Capability string            `bson:"capability" json:"capability"`
	Status     types.StakeStatus `bson:"status" json:"status"`
	// Open is true while the stake is active or unstaking. A partial unique
	// index on (user_id, stake_tier, open=true) keeps one open stake per tier.
	Open               bool       `bson:"open" json:"-"`
	UnlocksAt          *time.Time `bson:"unlocks_at,omitempty" json:"unlocks_at,omitempty"`
	UnstakeRequestedAt *time.Time `bson:"unstake_requested_at,omitempty" json:"unstake_requested_at,omitempty"`
	CompletedAt        *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt          time.Time  `bson:"created_at" json:"created_at"`
}

func NewStakeDocument(userID, tier, capability string, amount decimal.Decimal, createdAt time.Time) *StakeDocument {
	return &StakeDocument{
		ID:         uuid.NewString(),
		UserID:     userID,
		Tier:       tier,
		Amount:     amount,
		Capability: capability,
		Status:     types.StakeActive,
		Open:       true,
		CreatedAt:  createdAt.UTC(),
	}
}
