package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const BurnLogCollection = "burn_logs"

// BurnLogDocument is a denormalized view of a burn ledger entry, it shares the entry id.
type BurnLogDocument struct {
	ID            string          `bson:"_id" json:"id"`
	UserID        string          `bson:"user_id" json:"user_id"`
	Amount        decimal.Decimal `bson:"amount" json:"amount"`
	BurnType      string          `bson:"burn_type" json:"burn_type"`
	ActionContext string          `bson:"action_context,omitempty" json:"action_context,omitempty"`
	Units         int64           `bson:"units,omitempty" json:"units,omitempty"`
	BaseCost      decimal.Decimal `bson:"base_cost" json:"base_cost"`
	CreatedAt     time.Time       `bson:"created_at" json:"created_at"`
}
