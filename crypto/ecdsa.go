package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"math/big"
)

// Curve is the elliptic curve every key in this node is generated on.
// spec.md calls for NIST P-256 rather than Bitcoin's secp256k1.
func Curve() elliptic.Curve {
	return elliptic.P256()
}

// ErrMalformedKey is returned when a raw public key or signature blob can't
// be decoded into its constituent big integers.
var ErrMalformedKey = errors.New("crypto: malformed key or signature")

// NewKeyPair generates a fresh P-256 private key and its raw (X||Y)
// uncompressed public key encoding.
func NewKeyPair() (ecdsa.PrivateKey, []byte, error) {
	priv, err := ecdsa.GenerateKey(Curve(), rand.Reader)
	if err != nil {
		return ecdsa.PrivateKey{}, nil, err
	}
	pub := MarshalPublicKey(&priv.PublicKey)
	return *priv, pub, nil
}

// MarshalPublicKey encodes a public key as the concatenation of its X and Y
// coordinates, each padded to the curve's byte size.
func MarshalPublicKey(pub *ecdsa.PublicKey) []byte {
	size := (pub.Curve.Params().BitSize + 7) / 8
	out := make([]byte, 2*size)
	pub.X.FillBytes(out[:size])
	pub.Y.FillBytes(out[size:])
	return out
}

// UnmarshalPublicKey decodes the X||Y encoding MarshalPublicKey produces.
func UnmarshalPublicKey(raw []byte) (*ecdsa.PublicKey, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, ErrMalformedKey
	}
	half := len(raw) / 2
	x := new(big.Int).SetBytes(raw[:half])
	y := new(big.Int).SetBytes(raw[half:])
	return &ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}, nil
}

// Sign signs a 32-byte digest with priv, returning the r||s signature
// encoding used on the wire.
func Sign(priv *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, err
	}
	size := (priv.Curve.Params().BitSize + 7) / 8
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig, nil
}

// Verify checks an r||s signature over digest against a raw X||Y public key.
func Verify(pub []byte, digest, sig []byte) bool {
	key, err := UnmarshalPublicKey(pub)
	if err != nil {
		return false
	}
	if len(sig) == 0 || len(sig)%2 != 0 {
		return false
	}
	half := len(sig) / 2
	r := new(big.Int).SetBytes(sig[:half])
	s := new(big.Int).SetBytes(sig[half:])
	return ecdsa.Verify(key, digest, r, s)
}
