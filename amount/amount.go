package amount

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrArithmetic is returned when a percentage base is zero or an operand is negative.
var ErrArithmetic = errors.New("undefined percentage")

// Decimals is the number of fraction digits of the smallest unit (satoshi).
const Decimals = 8

var (
	hundred = decimal.NewFromInt(100)
	unit    = decimal.New(1, -Decimals)
)

// PercentOfPool returns amount*100/(preBalance+amount) rounded half away from zero to two
// fraction digits. The division is exact, no floating point is involved.
func PercentOfPool(amount, preBalance decimal.Decimal) (string, error) {
	if amount.IsNegative() || preBalance.IsNegative() {
		return "", fmt.Errorf("%w: negative operand", ErrArithmetic)
	}
	pool := preBalance.Add(amount)
	if pool.IsZero() {
		return "", fmt.Errorf("%w: empty pool", ErrArithmetic)
	}
	return amount.Mul(hundred).DivRound(pool, 2).StringFixed(2), nil
}

// Format renders an amount given in the smallest unit as a coin value with eight fraction digits.
func Format(satoshi decimal.Decimal) string {
	return satoshi.Mul(unit).StringFixed(Decimals)
}
