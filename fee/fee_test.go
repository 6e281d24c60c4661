package fee

import (
	"testing"

	"github.com/duniad/duniad/amount"
	"github.com/stretchr/testify/require"
)

func TestFixedModeIgnoresPriorityAndSize(t *testing.T) {
	e := NewFixed(5)
	low, err := e.Estimate(Low, 1000)
	require.NoError(t, err)
	urgent, err := e.Estimate(Urgent, 1)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(5), low)
	require.Equal(t, low, urgent)
}

func TestDynamicModeScalesWithPriority(t *testing.T) {
	e := NewDynamic(1, 0, 1_000_000)
	low, err := e.Estimate(Low, ReferenceSize)
	require.NoError(t, err)
	urgent, err := e.Estimate(Urgent, ReferenceSize)
	require.NoError(t, err)
	require.Greater(t, urgent, low)
}

func TestDynamicModeClampsToBounds(t *testing.T) {
	e := NewDynamic(1000, 10, 100)
	est, err := e.Estimate(Urgent, ReferenceSize)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(100), est)

	e2 := NewDynamic(0, 50, 1000)
	est2, err := e2.Estimate(Low, ReferenceSize)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(50), est2)
}

func TestParsePriorityRejectsUnknown(t *testing.T) {
	_, err := ParsePriority("extreme")
	require.Error(t, err)
}

func TestReportStatusOrdersByPriority(t *testing.T) {
	e := NewDynamic(2, 0, 1_000_000)
	status, err := e.ReportStatus()
	require.NoError(t, err)
	require.Less(t, status.Estimates[Low], status.Estimates[Normal])
	require.Less(t, status.Estimates[Normal], status.Estimates[High])
	require.Less(t, status.Estimates[High], status.Estimates[Urgent])
}
