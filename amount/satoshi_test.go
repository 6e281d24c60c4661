package amount

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddOverflow(t *testing.T) {
	a := Amount(math.MaxInt64 - 1)
	_, err := a.Add(2)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSubNegativeIsError(t *testing.T) {
	a := Amount(5)
	_, err := a.Sub(10)
	require.ErrorIs(t, err, ErrNegative)
}

func TestMulOverflow(t *testing.T) {
	a := Amount(math.MaxInt64 / 2)
	_, err := a.Mul(3)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSumHappyPath(t *testing.T) {
	total, err := Sum(Amount(100), Amount(200), Amount(300))
	require.NoError(t, err)
	require.Equal(t, Amount(600), total)
}

func TestFromCoinsRoundTrip(t *testing.T) {
	a, err := FromCoins(50)
	require.NoError(t, err)
	require.Equal(t, Amount(50*SatoshiPerCoin), a)
	require.Equal(t, 50.0, a.Coins())
}
