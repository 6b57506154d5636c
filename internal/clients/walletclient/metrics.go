package walletclient

import (
	"context"
	"time"

	"github.com/uct-network/uct-ledger/internal/observability/metrics"
)

type walletClientWithMetrics struct {
	wallets WalletInterface
}

func NewWalletClientWithMetrics(wallets WalletInterface) WalletInterface {
	return &walletClientWithMetrics{wallets: wallets}
}

func (w *walletClientWithMetrics) GetPrimaryWallet(ctx context.Context, userID string) (string, error) {
	startTime := time.Now()
	wallet, err := w.wallets.GetPrimaryWallet(ctx, userID)
	metrics.RecordClientLatency(time.Since(startTime), "wallet_directory", "GetPrimaryWallet", err != nil)
	return wallet, err
}
