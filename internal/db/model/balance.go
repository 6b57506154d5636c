package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const BalanceCollection = "balances"

// BalanceDocument is the mutable per-user projection of the ledger.
// It is only ever changed through BalanceDelta increments guarded by the
// non-negativity filter, never written back from application state.
type BalanceDocument struct {
	UserID         string          `bson:"_id" json:"user_id"`
	Available      decimal.Decimal `bson:"available" json:"available"`
	Pending        decimal.Decimal `bson:"pending" json:"pending"`
	Staked         decimal.Decimal `bson:"staked" json:"staked"`
	TotalBurned    decimal.Decimal `bson:"total_burned" json:"total_burned"`
	OnChain        decimal.Decimal `bson:"on_chain" json:"on_chain"`
	LifetimeEarned decimal.Decimal `bson:"lifetime_earned" json:"lifetime_earned"`
	Version        int64           `bson:"version" json:"version"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
}

func NewBalanceDocument(userID string) *BalanceDocument {
	return &BalanceDocument{UserID: userID}
}

// Apply returns a copy of the balance with delta added, without any checks.
func (b BalanceDocument) Apply(delta BalanceDelta) BalanceDocument {
	b.Available = b.Available.Add(delta.Available)
	b.Pending = b.Pending.Add(delta.Pending)
	b.Staked = b.Staked.Add(delta.Staked)
	b.TotalBurned = b.TotalBurned.Add(delta.TotalBurned)
	b.OnChain = b.OnChain.Add(delta.OnChain)
	b.LifetimeEarned = b.LifetimeEarned.Add(delta.LifetimeEarned)
	return b
}

// IsNonNegative reports whether every bucket is >= 0.
func (b BalanceDocument) IsNonNegative() bool {
	for _, v := range b.AsDelta().Fields() {
		if v.IsNegative() {
			return false
		}
	}
	return true
}

// AsDelta converts the balance into the delta that builds it from zero.
func (b BalanceDocument) AsDelta() BalanceDelta {
	return BalanceDelta{
		Available:      b.Available,
		Pending:        b.Pending,
		Staked:         b.Staked,
		TotalBurned:    b.TotalBurned,
		OnChain:        b.OnChain,
		LifetimeEarned: b.LifetimeEarned,
	}
}

// Unaccounted returns lifetime_earned - (available + pending + staked + total_burned + on_chain).
// It is zero for a consistent aggregate.
func (b BalanceDocument) Unaccounted() decimal.Decimal {
	held := b.Available.Add(b.Pending).Add(b.Staked).Add(b.TotalBurned).Add(b.OnChain)
	return b.LifetimeEarned.Sub(held)
}
