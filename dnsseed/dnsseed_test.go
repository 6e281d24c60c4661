package dnsseed

import (
	"testing"

	"github.com/duniad/duniad/peer"
	"github.com/stretchr/testify/require"
)

// TestResolveNeverPanicsOnUnresolvableHosts checks that seed hostnames
// which don't resolve in this environment are logged and skipped rather
// than causing a failure, per spec.md §4.11.
func TestResolveNeverPanicsOnUnresolvableHosts(t *testing.T) {
	peers := peer.New(0)
	require.NotPanics(t, func() {
		Resolve(peers)
	})
}
