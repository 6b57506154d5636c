package db

import "time"

// UpdateOptions carries the optional fields written together with a status transition.
type UpdateOptions struct {
	Timestamp        *time.Time
	UnlocksAt        *time.Time
	TxHash           *string
	FailureReason    *string
	Refunded         bool
	WalletsProcessed *int
}

type UpdateOption func(*UpdateOptions)

// WithTimestamp sets the transition time, stored in the <status>_at field of the document
func WithTimestamp(t time.Time) UpdateOption {
	return func(opts *UpdateOptions) {
		ts := t.UTC()
		opts.Timestamp = &ts
	}
}

func WithUnlocksAt(t time.Time) UpdateOption {
	return func(opts *UpdateOptions) {
		ts := t.UTC()
		opts.UnlocksAt = &ts
	}
}

func WithTxHash(txHash string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.TxHash = &txHash
	}
}

func WithFailureReason(reason string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.FailureReason = &reason
	}
}

// WithRefunded marks a failed settlement as refunded in the same update that fails it
func WithRefunded() UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Refunded = true
	}
}

func WithWalletsProcessed(n int) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.WalletsProcessed = &n
	}
}

func buildUpdateOptions(opts []UpdateOption) *UpdateOptions {
	options := &UpdateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
