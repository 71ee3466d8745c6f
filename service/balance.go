package service

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatBalance renders raw / 10^decimals with exactly two fractional digits
func FormatBalance(raw *big.Int, decimals int) string {
	return decimal.NewFromBigInt(raw, -int32(decimals)).StringFixed(2)
}
