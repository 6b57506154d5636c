package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LedgerStatsCollection = "ledger_stats"
	LedgerStatsID         = "ledger_stats"
)

// EventTotal is the rollup of one ledger event type.
type EventTotal struct {
	Count  int64           `bson:"count" json:"count"`
	Amount decimal.Decimal `bson:"amount" json:"amount"`
}

// LedgerStatsDocument is a read-only rollup for observability, never used as authoritative state.
type LedgerStatsDocument struct {
	ID                  string                `bson:"_id" json:"-"`
	Users               int64                 `bson:"users" json:"users"`
	Totals              BalanceDelta          `bson:"totals" json:"totals"`
	Events              map[string]EventTotal `bson:"events" json:"events"`
	SettlementsByStatus map[string]int64      `bson:"settlements_by_status" json:"settlements_by_status"`
	MintBatchesByStatus map[string]int64      `bson:"mint_batches_by_status" json:"mint_batches_by_status"`
	LastUpdated         time.Time             `bson:"last_updated" json:"last_updated"`
}
