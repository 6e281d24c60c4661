package wallet

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	address := w.Address()
	require.True(t, ValidateAddress(address))

	hash, err := PubKeyHashFromAddress(address)
	require.NoError(t, err)
	require.Equal(t, PublicKeyHash(w.PublicKey), hash)
}

func TestValidateAddressRejectsGarbage(t *testing.T) {
	require.False(t, ValidateAddress("not-an-address"))
	require.False(t, ValidateAddress(""))
}

func TestWalletGobRoundTrip(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(w))

	var decoded Wallet
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	require.Equal(t, w.Address(), decoded.Address())
	require.Equal(t, w.PublicKey, decoded.PublicKey)
}

func TestWalletsAddAndLookup(t *testing.T) {
	ws := NewWallets()
	address, err := ws.AddWallet()
	require.NoError(t, err)

	w, err := ws.GetWallet(address)
	require.NoError(t, err)
	require.Equal(t, address, w.Address())

	_, err = ws.GetWallet("bogus")
	require.ErrorIs(t, err, ErrWalletNotFound)
}

func TestWalletsSaveLoadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallets.dat")

	ws := NewWallets()
	a1, err := ws.AddWallet()
	require.NoError(t, err)
	a2, err := ws.AddWallet()
	require.NoError(t, err)

	require.NoError(t, ws.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a1, a2}, loaded.GetAllAddresses())
}

func TestWalletsEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallets.enc")

	ws := NewWallets()
	address, err := ws.AddWallet()
	require.NoError(t, err)

	require.NoError(t, ws.SaveEncryptedFile(path, "correct horse battery staple"))

	loaded, err := LoadEncryptedFile(path, "correct horse battery staple")
	require.NoError(t, err)
	_, err = loaded.GetWallet(address)
	require.NoError(t, err)

	_, err = LoadEncryptedFile(path, "wrong passphrase")
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestLoadFileMissingReturnsEmptyCollection(t *testing.T) {
	ws, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.dat"))
	require.NoError(t, err)
	require.Empty(t, ws.GetAllAddresses())
}
