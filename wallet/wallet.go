// Package wallet is the external collaborator spec.md §1 describes: it
// supplies signing keys and addresses to the blockchain and CLI layers but
// is never touched by the p2p server. Grounded on
// _examples/petiibhuzah-golang-blockchain/wallet.
package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/gob"
	"math/big"

	"github.com/duniad/duniad/crypto"
)

// Wallet holds one ECDSA key pair and derives its address from the public
// key. The private key is never serialized directly (see GobEncode); only
// the scalar D is persisted, since P-256 is fixed and the public key can
// always be recomputed from it.
type Wallet struct {
	PrivateKey ecdsa.PrivateKey
	PublicKey  []byte
}

// New generates a fresh wallet with a new P-256 key pair.
func New() (*Wallet, error) {
	priv, pub, err := crypto.NewKeyPair()
	if err != nil {
		return nil, err
	}
	return &Wallet{PrivateKey: priv, PublicKey: pub}, nil
}

// PublicKeyHash returns hash160(pubKey), the payload committed into every
// address and output.
func PublicKeyHash(pubKey []byte) []byte {
	return crypto.Hash160(pubKey)
}

// Address returns the wallet's base58check-encoded address.
func (w *Wallet) Address() string {
	return crypto.Base58CheckEncode(crypto.AddressVersion, PublicKeyHash(w.PublicKey))
}

// ValidateAddress reports whether address decodes to a well-formed,
// checksum-valid, version-0 payload of the expected pub-key-hash length.
func ValidateAddress(address string) bool {
	version, payload, err := crypto.Base58CheckDecode(address)
	if err != nil {
		return false
	}
	if version != crypto.AddressVersion {
		return false
	}
	return len(payload) == crypto.RIPEMD160Size
}

// PubKeyHashFromAddress decodes address and returns its 20-byte
// pub-key-hash payload, failing the same way ValidateAddress would.
func PubKeyHashFromAddress(address string) ([]byte, error) {
	version, payload, err := crypto.Base58CheckDecode(address)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	if version != crypto.AddressVersion || len(payload) != crypto.RIPEMD160Size {
		return nil, ErrInvalidAddress
	}
	return payload, nil
}

// GobEncode implements gob.GobEncoder, persisting only the private scalar;
// the curve is always P-256 so the rest of the key is reconstructible.
func (w *Wallet) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(w.PrivateKey.D.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode.
func (w *Wallet) GobDecode(data []byte) error {
	var dBytes []byte
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&dBytes); err != nil {
		return err
	}

	curve := crypto.Curve()
	d := new(big.Int).SetBytes(dBytes)
	x, y := curve.ScalarBaseMult(dBytes)

	w.PrivateKey = ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}
	w.PublicKey = crypto.MarshalPublicKey(&w.PrivateKey.PublicKey)
	return nil
}
