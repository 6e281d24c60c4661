package blockchain

import (
	"context"
	"math/big"

	"github.com/duniad/duniad/crypto"
)

// cancelCheckInterval is how often the mining loop polls ctx.Done(), per
// spec.md §5's "check a cancel flag at least every 2^16 nonces".
const cancelCheckInterval = 1 << 16

// ProofOfWork enumerates candidate nonces for a block until its header
// hash meets the block's own difficulty target. Grounded on
// blockchain/proof.go's ProofOfWork/NewProof/Run/Validate, generalized
// from the file's fixed Difficulty constant to the block's own
// difficulty field (spec.md §4.3: difficulty is authoritative per-header,
// not inferred) and made cancellable.
type ProofOfWork struct {
	block  *Block
	target *big.Int
}

// NewProofOfWork builds the PoW target for b's stated difficulty:
// 2^(256-difficulty), i.e. a hash needs at least `difficulty` leading
// zero bits to fall at or below it.
func NewProofOfWork(b *Block) *ProofOfWork {
	target := big.NewInt(1)
	target.Lsh(target, uint(256-b.Difficulty))
	return &ProofOfWork{block: b, target: target}
}

func (pow *ProofOfWork) hashAt(nonce uint64) []byte {
	pow.block.Nonce = nonce
	return crypto.Sha256d(pow.block.headerBytes())
}

// meetsTarget reports whether hash, as a big-endian integer, is at or
// below the target. The boundary is inclusive (spec.md §8).
func (pow *ProofOfWork) meetsTarget(hash []byte) bool {
	var intHash big.Int
	intHash.SetBytes(hash)
	return intHash.Cmp(pow.target) <= 0
}

// Run searches for a valid nonce, polling ctx for cancellation. It
// mutates pow.block.Nonce and returns the winning hash; on cancellation
// it returns ctx.Err() and leaves the block's nonce at whatever value it
// was last probing (callers must discard a cancelled candidate).
func (pow *ProofOfWork) Run(ctx context.Context) ([]byte, error) {
	var nonce uint64
	for {
		hash := pow.hashAt(nonce)
		if pow.meetsTarget(hash) {
			return hash, nil
		}
		nonce++
		if nonce%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
	}
}

// Validate reports whether the block's stored nonce actually satisfies
// its own stated difficulty target.
func (pow *ProofOfWork) Validate() bool {
	hash := crypto.Sha256d(pow.block.headerBytes())
	return pow.meetsTarget(hash)
}
