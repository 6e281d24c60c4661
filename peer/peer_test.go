package peer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddAndCount(t *testing.T) {
	m := New(2)
	require.NoError(t, m.Add("a:1"))
	require.NoError(t, m.Add("b:2"))
	require.Equal(t, 2, m.Count())
}

func TestAddRejectsOverCapacity(t *testing.T) {
	m := New(1)
	require.NoError(t, m.Add("a:1"))
	require.ErrorIs(t, m.Add("b:2"), ErrPeerCapacityExceeded)
}

func TestReAddingKnownPeerNeverRejected(t *testing.T) {
	m := New(1)
	require.NoError(t, m.Add("a:1"))
	require.NoError(t, m.Add("a:1"))
}

func TestRemove(t *testing.T) {
	m := New(4)
	require.NoError(t, m.Add("a:1"))
	m.Remove("a:1")
	require.False(t, m.Has("a:1"))
}

func TestDefaultCapacity(t *testing.T) {
	m := New(0)
	for i := 0; i < DefaultCapacity; i++ {
		require.NoError(t, m.Add(fmt.Sprintf("peer-%d:1", i)))
	}
	require.Error(t, m.Add("overflow:1"))
}
