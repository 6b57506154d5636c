package minterclient

import (
	"context"

	"github.com/shopspring/decimal"
)

// MintItem is one (wallet, amount) pair of a batch mint.
type MintItem struct {
	WalletAddress string          `json:"wallet_address"`
	Amount        decimal.Decimal `json:"amount"`
}

type BatchMintResult struct {
	TxHash           string          `json:"tx_hash"`
	WalletsProcessed int             `json:"wallets_processed"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// MinterInterface is the external minting collaborator. The idempotency key
// lets the collaborator recognise a repeated submission of the same batch.
type MinterInterface interface {
	Mint(ctx context.Context, walletAddress string, amount decimal.Decimal, network, idempotencyKey string) (string, error)
	BatchMint(ctx context.Context, items []MintItem, network, idempotencyKey string) (*BatchMintResult, error)
}
