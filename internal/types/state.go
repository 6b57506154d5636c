package types

// StakeStatus is the lifecycle state of a stake.
type StakeStatus string

const (
	StakeActive    StakeStatus = "active"
	StakeUnstaking StakeStatus = "unstaking"
	StakeCompleted StakeStatus = "completed"
)

func (s StakeStatus) String() string {
	return string(s)
}

// IsOpen reports whether the stake still holds tokens.
func (s StakeStatus) IsOpen() bool {
	return s == StakeActive || s == StakeUnstaking
}

// QualifiedStatesForUnstakeRequest returns the qualified current states for an unstake request
func QualifiedStatesForUnstakeRequest() []StakeStatus {
	return []StakeStatus{StakeActive}
}

// QualifiedStatesForUnstakeCompletion returns the qualified current states for completing an unstake
func QualifiedStatesForUnstakeCompletion() []StakeStatus {
	return []StakeStatus{StakeUnstaking}
}

// BatchStatus is the state of an on-chain settlement or a mint batch.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchSubmitted BatchStatus = "submitted"
	BatchConfirmed BatchStatus = "confirmed"
	BatchFailed    BatchStatus = "failed"
)

func (s BatchStatus) String() string {
	return string(s)
}

// QualifiedStatesForSubmit returns the qualified current states before the external mint call
func QualifiedStatesForSubmit() []BatchStatus {
	return []BatchStatus{BatchPending}
}

// QualifiedStatesForConfirm returns the qualified current states for a confirmation.
// A confirmed or failed batch never transitions again.
func QualifiedStatesForConfirm() []BatchStatus {
	return []BatchStatus{BatchPending, BatchSubmitted}
}

// QualifiedStatesForFail returns the qualified current states for a failure with refund.
func QualifiedStatesForFail() []BatchStatus {
	return []BatchStatus{BatchPending, BatchSubmitted}
}
