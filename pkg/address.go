package pkg

import (
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

var walletAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateWalletAddress checks the 0x-prefixed 20-byte hex format accepted by the minting network.
func ValidateWalletAddress(address string) error {
	if !walletAddressRe.MatchString(address) {
		return fmt.Errorf("invalid wallet address %q: expected 0x followed by 40 hex characters", address)
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid wallet address %q", address)
	}

	return nil
}

// NormalizeWalletAddress validates the address and returns its EIP-55 checksummed form.
func NormalizeWalletAddress(address string) (string, error) {
	if err := ValidateWalletAddress(address); err != nil {
		return "", err
	}

	return common.HexToAddress(address).Hex(), nil
}
