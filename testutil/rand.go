package testutil

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// RandomAlphaNum generates random alphanumeric string
// in case length <= 0 it returns an error
func RandomAlphaNum(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be greater than 0")
	}

	return gofakeit.Regex(fmt.Sprintf("[a-zA-Z0-9]{%d}", length)), nil
}

func RandomUserID() string {
	return "user-" + gofakeit.UUID()
}

// RandomWalletAddress returns a checksummed 20-byte address
func RandomWalletAddress() string {
	return common.BytesToAddress([]byte(gofakeit.LetterN(20))).Hex()
}

// RandomAmount returns a positive amount with up to 8 decimal places
func RandomAmount(maxUnits int) decimal.Decimal {
	units := decimal.NewFromInt(int64(gofakeit.IntRange(1, maxUnits)))
	fraction := decimal.New(int64(gofakeit.IntRange(0, 99999999)), -8)
	return units.Add(fraction)
}
