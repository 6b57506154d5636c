package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Field names shared by the balance document and the ledger entry deltas.
const (
	FieldAvailable      = "available"
	FieldPending        = "pending"
	FieldStaked         = "staked"
	FieldTotalBurned    = "total_burned"
	FieldOnChain        = "on_chain"
	FieldLifetimeEarned = "lifetime_earned"
)

// BalanceDelta is the signed per-bucket effect of one ledger event.
type BalanceDelta struct {
	Available      decimal.Decimal `bson:"available" json:"available"`
	Pending        decimal.Decimal `bson:"pending" json:"pending"`
	Staked         decimal.Decimal `bson:"staked" json:"staked"`
	TotalBurned    decimal.Decimal `bson:"total_burned" json:"total_burned"`
	OnChain        decimal.Decimal `bson:"on_chain" json:"on_chain"`
	LifetimeEarned decimal.Decimal `bson:"lifetime_earned" json:"lifetime_earned"`
}

// Fields maps bson field names to their delta values.
func (d BalanceDelta) Fields() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		FieldAvailable:      d.Available,
		FieldPending:        d.Pending,
		FieldStaked:         d.Staked,
		FieldTotalBurned:    d.TotalBurned,
		FieldOnChain:        d.OnChain,
		FieldLifetimeEarned: d.LifetimeEarned,
	}
}

func (d BalanceDelta) Add(other BalanceDelta) BalanceDelta {
	return BalanceDelta{
		Available:      d.Available.Add(other.Available),
		Pending:        d.Pending.Add(other.Pending),
		Staked:         d.Staked.Add(other.Staked),
		TotalBurned:    d.TotalBurned.Add(other.TotalBurned),
		OnChain:        d.OnChain.Add(other.OnChain),
		LifetimeEarned: d.LifetimeEarned.Add(other.LifetimeEarned),
	}
}

func (d BalanceDelta) Equal(other BalanceDelta) bool {
	a, b := d.Fields(), other.Fields()
	for field, v := range a {
		if !v.Equal(b[field]) {
			return false
		}
	}
	return true
}

func (d BalanceDelta) IsZero() bool {
	for _, v := range d.Fields() {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// HasDebit reports whether any bucket is decremented.
func (d BalanceDelta) HasDebit() bool {
	for _, v := range d.Fields() {
		if v.IsNegative() {
			return true
		}
	}
	return false
}

// Validate rejects deltas that would decrease the monotonic buckets.
func (d BalanceDelta) Validate() error {
	if d.TotalBurned.IsNegative() {
		return errors.New("total_burned can not decrease")
	}
	if d.LifetimeEarned.IsNegative() {
		return errors.New("lifetime_earned can not decrease")
	}
	return nil
}
