package minterclient

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/observability/metrics"
)

type minterWithMetrics struct {
	minter MinterInterface
}

func NewMinterWithMetrics(minter MinterInterface) MinterInterface {
	return &minterWithMetrics{minter: minter}
}

func (m *minterWithMetrics) Mint(
	ctx context.Context, walletAddress string, amount decimal.Decimal, network, idempotencyKey string,
) (string, error) {
	return runMinterMethodWithMetrics("Mint", func() (string, error) {
		return m.minter.Mint(ctx, walletAddress, amount, network, idempotencyKey)
	})
}

func (m *minterWithMetrics) BatchMint(
	ctx context.Context, items []MintItem, network, idempotencyKey string,
) (*BatchMintResult, error) {
	return runMinterMethodWithMetrics("BatchMint", func() (*BatchMintResult, error) {
		return m.minter.BatchMint(ctx, items, network, idempotencyKey)
	})
}

func runMinterMethodWithMetrics[T any](method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	metrics.RecordClientLatency(duration, "minter", method, err != nil)
	return v, err
}
