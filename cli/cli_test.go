package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/duniad/duniad/amount"
	"github.com/duniad/duniad/fee"
	"github.com/duniad/duniad/nodeid"
	"github.com/stretchr/testify/require"
)

// isolatedNode chdirs into a fresh temp directory so the node's
// cwd-relative data directory and wallet file never touch the real
// working tree, and sets NODE_ID so parallel test runs never collide.
func isolatedNode(t *testing.T) nodeid.Identity {
	t.Helper()
	dir := t.TempDir()
	origWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))

	os.Setenv("NODE_ID", "test")
	os.Setenv("NODE_ADDRESS", "127.0.0.1:0")
	t.Cleanup(func() {
		os.Unsetenv("NODE_ID")
		os.Unsetenv("NODE_ADDRESS")
		os.Chdir(origWd)
	})
	id := nodeid.FromEnvironment()
	require.NoError(t, os.MkdirAll(id.DataDir, 0700))
	return id
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSetFeeModeFixedRoundTrip(t *testing.T) {
	id := isolatedNode(t)

	_, err := execute(t, "setfeemode", "500")
	require.NoError(t, err)

	engine, err := loadFeeEngine(id)
	require.NoError(t, err)
	require.Equal(t, fee.Fixed, engine.Mode)
	require.Equal(t, amount.Amount(500), engine.FixedFee)
}

func TestSetFeeModeDynamic(t *testing.T) {
	id := isolatedNode(t)

	_, err := execute(t, "setfeemode", "dynamic")
	require.NoError(t, err)

	engine, err := loadFeeEngine(id)
	require.NoError(t, err)
	require.Equal(t, fee.Dynamic, engine.Mode)
}

func TestSetFeeModeRejectsGarbage(t *testing.T) {
	isolatedNode(t)
	_, err := execute(t, "setfeemode", "not-a-number")
	require.Error(t, err)
}

func TestCreateWalletThenListAddresses(t *testing.T) {
	id := isolatedNode(t)
	walletPath := id.WalletFile()
	t.Cleanup(func() { os.Remove(walletPath) })

	_, err := execute(t, "createwallet")
	require.NoError(t, err)

	ws, err := loadWallets(id, "")
	require.NoError(t, err)
	require.Len(t, ws.GetAllAddresses(), 1)
}

func TestCreateBlockChainThenGetBalance(t *testing.T) {
	id := isolatedNode(t)
	walletPath := id.WalletFile()
	t.Cleanup(func() { os.Remove(walletPath) })

	_, err := execute(t, "createwallet")
	require.NoError(t, err)
	ws, err := loadWallets(id, "")
	require.NoError(t, err)
	address := ws.GetAllAddresses()[0]

	_, err = execute(t, "createblockchain", address)
	require.NoError(t, err)

	out, err := execute(t, "getbalance", address)
	require.NoError(t, err)
	require.Contains(t, out, "Balance of")
}
