// Package amount implements the node's monetary unit: a non-negative
// 64-bit satoshi count with checked arithmetic. Overflow and negative
// results are hard errors, never silently wrapped or clamped.
package amount

import (
	"errors"
	"fmt"
	"math"
)

// SatoshiPerCoin is the number of satoshis in one coin.
const SatoshiPerCoin int64 = 100_000_000

// Amount is a non-negative count of satoshis.
type Amount int64

// ErrOverflow is returned when an arithmetic operation would exceed the
// representable range.
var ErrOverflow = errors.New("amount: arithmetic overflow")

// ErrNegative is returned when an operation would produce a negative
// amount, which this type can represent but which is never valid here.
var ErrNegative = errors.New("amount: negative result")

// FromCoins converts a whole-and-fractional coin amount into satoshis,
// rejecting values that don't fit in an int64 satoshi count.
func FromCoins(coins float64) (Amount, error) {
	if math.IsNaN(coins) || math.IsInf(coins, 0) {
		return 0, fmt.Errorf("amount: %v is not a finite coin value", coins)
	}
	satoshis := coins * float64(SatoshiPerCoin)
	if satoshis < 0 || satoshis > float64(math.MaxInt64) {
		return 0, ErrOverflow
	}
	return Amount(int64(math.Round(satoshis))), nil
}

// Coins returns the amount expressed as whole-and-fractional coins.
func (a Amount) Coins() float64 {
	return float64(a) / float64(SatoshiPerCoin)
}

// Add returns a+b, or ErrOverflow if the sum overflows int64.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := int64(a) + int64(b)
	if (b > 0 && sum < int64(a)) || (b < 0 && sum > int64(a)) {
		return 0, ErrOverflow
	}
	return Amount(sum), nil
}

// Sub returns a-b, or ErrNegative if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, ErrNegative
	}
	return a - b, nil
}

// Mul returns a*scalar, or ErrOverflow on overflow. scalar must be
// non-negative; a negative scalar is a programmer error caught by ErrNegative.
func (a Amount) Mul(scalar int64) (Amount, error) {
	if scalar < 0 {
		return 0, ErrNegative
	}
	if scalar == 0 || a == 0 {
		return 0, nil
	}
	product := int64(a) * scalar
	if product/scalar != int64(a) {
		return 0, ErrOverflow
	}
	return Amount(product), nil
}

// Sum adds up a slice of amounts, returning ErrOverflow on the first
// overflow encountered.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	var err error
	for _, a := range amounts {
		total, err = total.Add(a)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Valid reports whether the amount is non-negative, the only invariant
// this type enforces on its own (overflow checks live in the operations).
func (a Amount) Valid() bool {
	return a >= 0
}

func (a Amount) String() string {
	return fmt.Sprintf("%d", int64(a))
}
