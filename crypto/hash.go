// Package crypto holds the pure cryptographic primitives the rest of the
// node is built on: hashing, ECDSA signing, and base58check address
// encoding. Nothing here touches the network, the store, or a wallet file.
package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// HashSize is the length in bytes of a Sha256/Sha256d digest (block and
// transaction ids). Ripemd160/Hash160 digests are RIPEMD160Size bytes.
const HashSize = 32

// RIPEMD160Size is the length in bytes of a Hash160/Ripemd160 digest,
// i.e. a pub-key-hash payload.
const RIPEMD160Size = 20

// Sha256 returns the SHA-256 digest of data.
func Sha256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Sha256d returns SHA-256(SHA-256(data)), the double hash used for block
// and transaction ids and for address checksums.
func Sha256d(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Ripemd160 returns the RIPEMD-160 digest of data.
func Ripemd160(data []byte) []byte {
	hasher := ripemd160.New()
	hasher.Write(data) // hash.Hash never returns an error from Write
	return hasher.Sum(nil)
}

// Hash160 is SHA-256 followed by RIPEMD-160, the standard public-key-hash
// construction used to derive an address from a public key.
func Hash160(data []byte) []byte {
	return Ripemd160(Sha256(data))
}
