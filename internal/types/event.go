package types

// LedgerEventType is the kind of balance-affecting event recorded in the ledger.
type LedgerEventType string

func (e LedgerEventType) String() string {
	return string(e)
}

const (
	EventEarn                LedgerEventType = "earn"
	EventSpend               LedgerEventType = "spend"
	EventBurn                LedgerEventType = "burn"
	EventStake               LedgerEventType = "stake"
	EventUnstakeRequested    LedgerEventType = "unstake_requested"
	EventUnstakeCompleted    LedgerEventType = "unstake_completed"
	EventClaimPending        LedgerEventType = "claim_pending"
	EventSettlementRequested LedgerEventType = "settlement_requested"
	EventSettlementConfirmed LedgerEventType = "settlement_confirmed"
	EventSettlementRefunded  LedgerEventType = "settlement_refunded"
	EventMintedOnchain       LedgerEventType = "minted_onchain"
)

// AllLedgerEventTypes lists every event type in a stable order, used for rollups.
func AllLedgerEventTypes() []LedgerEventType {
	return []LedgerEventType{
		EventEarn,
		EventSpend,
		EventBurn,
		EventStake,
		EventUnstakeRequested,
		EventUnstakeCompleted,
		EventClaimPending,
		EventSettlementRequested,
		EventSettlementConfirmed,
		EventSettlementRefunded,
		EventMintedOnchain,
	}
}

// RewardDestination selects which balance bucket an accrual credits.
type RewardDestination string

const (
	DestinationAvailable RewardDestination = "available"
	DestinationPending   RewardDestination = "pending"
)

func (d RewardDestination) String() string {
	return string(d)
}

func (d RewardDestination) IsValid() bool {
	return d == DestinationAvailable || d == DestinationPending
}
