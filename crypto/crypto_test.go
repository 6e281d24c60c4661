package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSha256dIsDoubleHash(t *testing.T) {
	data := []byte("hello duniad")
	want := Sha256(Sha256(data))
	require.Equal(t, want, Sha256d(data))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, pub, err := NewKeyPair()
	require.NoError(t, err)

	digest := Sha256d([]byte("a transaction digest"))
	sig, err := Sign(&priv, digest)
	require.NoError(t, err)

	require.True(t, Verify(pub, digest, sig))
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	priv, pub, err := NewKeyPair()
	require.NoError(t, err)

	digest := Sha256d([]byte("original"))
	sig, err := Sign(&priv, digest)
	require.NoError(t, err)

	tampered := Sha256d([]byte("tampered"))
	require.False(t, Verify(pub, tampered, sig))
}

func TestBase58CheckRoundTrip(t *testing.T) {
	payload := Hash160([]byte("some public key bytes"))
	encoded := Base58CheckEncode(AddressVersion, payload)

	version, decoded, err := Base58CheckDecode(encoded)
	require.NoError(t, err)
	require.Equal(t, AddressVersion, version)
	require.Equal(t, payload, decoded)
}

func TestBase58CheckDecodeRejectsCorruptedChecksum(t *testing.T) {
	payload := Hash160([]byte("some public key bytes"))
	encoded := Base58CheckEncode(AddressVersion, payload)

	corrupted := []byte(encoded)
	// Flip the last character, corrupting the checksum tail.
	if corrupted[len(corrupted)-1] == 'a' {
		corrupted[len(corrupted)-1] = 'b'
	} else {
		corrupted[len(corrupted)-1] = 'a'
	}

	_, _, err := Base58CheckDecode(string(corrupted))
	require.Error(t, err)
}
