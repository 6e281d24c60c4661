package nodeid

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvironmentDefaults(t *testing.T) {
	os.Unsetenv("NODE_ADDRESS")
	os.Unsetenv("NODE_ID")
	id := FromEnvironment()
	require.Equal(t, DefaultAddress, id.Address)
	require.Equal(t, DefaultID, id.ID)
}

func TestDistinctNodeIDsNeverShareDataDir(t *testing.T) {
	os.Setenv("NODE_ID", "3000")
	a := FromEnvironment()
	os.Setenv("NODE_ID", "3001")
	b := FromEnvironment()
	os.Unsetenv("NODE_ID")

	require.NotEqual(t, a.DataDir, b.DataDir)
	require.NotEqual(t, a.WalletFile(), b.WalletFile())
}
