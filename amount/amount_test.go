package amount

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPercentOfPool(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		preBalance string
		expected   string
	}{
		{"Quarter", "15", "45", "25.00"},
		{"Whole pool", "100", "0", "100.00"},
		{"Zero amount", "0", "100", "0.00"},
		{"Repeating third rounds down", "1", "2", "33.33"},
		{"Repeating two thirds rounds up", "2", "1", "66.67"},
		{"Half rounds away from zero", "1", "19999", "0.01"},
		{"Below half rounds to zero", "1", "20001", "0.00"},
		{"Huge values keep precision", "9223372036854775807", "9223372036854775807", "50.00"},
		{"Beyond 2^63", "18446744073709551616", "55340232221128654848", "25.00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pct, err := PercentOfPool(d(tc.amount), d(tc.preBalance))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, pct)
		})
	}
}

func TestPercentOfPool_MatchesExactRational(t *testing.T) {
	for a := int64(0); a < 40; a++ {
		for b := int64(0); b < 40; b++ {
			if a+b == 0 {
				continue
			}
			pct, err := PercentOfPool(decimal.NewFromInt(a), decimal.NewFromInt(b))
			require.NoError(t, err)

			// round(10000a/(a+b)) half up, non-negative operands
			num := big.NewInt(10000 * a)
			den := big.NewInt(a + b)
			q, r := new(big.Int).QuoRem(num, den, new(big.Int))
			if new(big.Int).Lsh(r, 1).Cmp(den) >= 0 {
				q.Add(q, big.NewInt(1))
			}
			expected := decimal.NewFromBigInt(q, -2).StringFixed(2)
			assert.Equal(t, expected, pct, "a=%d b=%d", a, b)
		}
	}
}

func TestPercentOfPool_Errors(t *testing.T) {
	_, err := PercentOfPool(decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, ErrArithmetic)

	_, err = PercentOfPool(d("-1"), d("10"))
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "100.00000000", Format(d("10000000000")))
	assert.Equal(t, "0.00000001", Format(d("1")))
	assert.Equal(t, "0.00000000", Format(decimal.Zero))
	assert.Equal(t, "92233720368.54775807", Format(d("9223372036854775807")))
}
