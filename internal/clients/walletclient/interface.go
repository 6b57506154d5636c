package walletclient

import "context"

// WalletInterface is the directory owning the verified wallet-address-to-user mapping.
type WalletInterface interface {
	// GetPrimaryWallet returns the user's primary wallet address, or an empty
	// string if the user has none.
	GetPrimaryWallet(ctx context.Context, userID string) (string, error)
}
