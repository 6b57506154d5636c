package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/types"
)

const MintBatchCollection = "mint_batches"

// MintBatchItem is one snapshotted (user, wallet, amount) line of a batch mint.
type MintBatchItem struct {
	UserID        string          `bson:"user_id" json:"user_id"`
	WalletAddress string          `bson:"wallet_address" json:"wallet_address"`
	Amount        decimal.Decimal `bson:"amount" json:"amount"`
	// Applied is set once the minted amount has been moved out of available
	Applied   bool            `bson:"applied" json:"applied"`
	Shortfall decimal.Decimal `bson:"shortfall" json:"shortfall"`
}

type MintBatchSkip struct {
	UserID string `bson:"user_id" json:"user_id"`
	Reason string `bson:"reason" json:"reason"`
}

type MintBatchDocument struct {
	ID               string            `bson:"_id" json:"id"`
	Network          string            `bson:"network" json:"network"`
	Status           types.BatchStatus `bson:"status" json:"status"`
	Items            []MintBatchItem   `bson:"items" json:"items"`
	Skipped          []MintBatchSkip   `bson:"skipped,omitempty" json:"skipped,omitempty"`
	TotalAmount      decimal.Decimal   `bson:"total_amount" json:"total_amount"`
	TxHash           string            `bson:"tx_hash,omitempty" json:"tx_hash,omitempty"`
	WalletsProcessed int               `bson:"wallets_processed,omitempty" json:"wallets_processed,omitempty"`
	FailureReason    string            `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
	SubmittedAt      *time.Time        `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	ConfirmedAt      *time.Time        `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	FailedAt         *time.Time        `bson:"failed_at,omitempty" json:"failed_at,omitempty"`
}

func NewMintBatchDocument(network string, items []MintBatchItem, skipped []MintBatchSkip, createdAt time.Time) *MintBatchDocument {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}

	return &MintBatchDocument{
		ID:          uuid.NewString(),
		Network:     network,
		Status:      types.BatchPending,
		Items:       items,
		Skipped:     skipped,
		TotalAmount: total,
		CreatedAt:   createdAt.UTC(),
	}
}

// UnappliedItems returns the items whose balance change is still outstanding.
func (b *MintBatchDocument) UnappliedItems() []MintBatchItem {
	var items []MintBatchItem
	for _, item := range b.Items {
		if !item.Applied {
			items = append(items, item)
		}
	}
	return items
}
