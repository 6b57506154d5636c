package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/types"
)

const OnchainBatchCollection = "onchain_batches"

// OnchainBatchDocument correlates a settlement debit with the external mint call.
// The amount leaves available when the document is created and either lands in
// on_chain (confirmed) or goes back to available (failed, Refunded=true).
type OnchainBatchDocument struct {
	ID            string            `bson:"_id" json:"id"`
	UserID        string            `bson:"user_id" json:"user_id"`
	Amount        decimal.Decimal   `bson:"amount" json:"amount"`
	WalletAddress string            `bson:"wallet_address" json:"wallet_address"`
	Network       string            `bson:"network" json:"network"`
	Status        types.BatchStatus `bson:"status" json:"status"`
	TxHash        string            `bson:"tx_hash,omitempty" json:"tx_hash,omitempty"`
	FailureReason string            `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	Refunded      bool              `bson:"refunded" json:"refunded"`
	CreatedAt     time.Time         `bson:"created_at" json:"created_at"`
	SubmittedAt   *time.Time        `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	ConfirmedAt   *time.Time        `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	FailedAt      *time.Time        `bson:"failed_at,omitempty" json:"failed_at,omitempty"`
}

func NewOnchainBatchDocument(
	userID string, amount decimal.Decimal, walletAddress, network string, createdAt time.Time,
) *OnchainBatchDocument {
	return &OnchainBatchDocument{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		WalletAddress: walletAddress,
		Network:       network,
		Status:        types.BatchPending,
		CreatedAt:     createdAt.UTC(),
	}
}
