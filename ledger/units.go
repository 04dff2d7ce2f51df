package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL 1 SOL = 1e9 lamports
const LamportsPerSOL = 1_000_000_000

var ErrInvalidSOLAmount = errors.New("invalid SOL amount")

var maxLamports = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// FormatSOL lamports 转成 SOL 文本，例如 1500000000 -> "1.5"
func FormatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9).String()
}

// ParseSOL "1.5" -> 1500000000；超过 9 位小数、负数或溢出都报错
func ParseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSOLAmount, s)
	}
	l := d.Shift(9)
	if !l.Equal(l.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more than 9 decimals", ErrInvalidSOLAmount, s)
	}
	if l.IsNegative() || l.GreaterThan(maxLamports) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidSOLAmount, s)
	}
	return l.BigInt().Uint64(), nil
}
