// Package merkle builds commitments over an ordered list of transactions
// and produces inclusion proofs against the resulting root.
package merkle

import (
	"bytes"
	"errors"

	"github.com/duniad/duniad/crypto"
)

// ErrEmptyLeaves is returned when NewTree is asked to commit to zero
// leaves; a block's transaction list must never be empty (it always has at
// least the coinbase).
var ErrEmptyLeaves = errors.New("merkle: leaf list must not be empty")

// Tree is a binary Merkle tree over double-SHA-256 leaf hashes, with the
// Bitcoin convention of duplicating the last node at a level with an odd
// number of entries. Each stored level is already padded to even length
// (except the one-element root level), so sibling lookups during proof
// construction are a plain index XOR 1.
type Tree struct {
	levels [][][]byte
}

// Root returns the tree's Merkle root.
func (t *Tree) Root() []byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// NewTree hashes each leaf with double-SHA-256 and folds levels pairwise
// until a single root remains.
func NewTree(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		level[i] = crypto.Sha256d(leaf)
	}

	var levels [][][]byte
	for {
		if len(level)%2 != 0 && len(level) > 1 {
			level = append(level, level[len(level)-1])
		}
		levels = append(levels, level)
		if len(level) == 1 {
			break
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}

	return &Tree{levels: levels}, nil
}

func hashPair(left, right []byte) []byte {
	combined := make([]byte, 0, len(left)+len(right))
	combined = append(combined, left...)
	combined = append(combined, right...)
	return crypto.Sha256d(combined)
}

// Root is a convenience wrapper for callers that only need the root hash
// and don't intend to request proofs.
func Root(leaves [][]byte) ([]byte, error) {
	t, err := NewTree(leaves)
	if err != nil {
		return nil, err
	}
	return t.Root(), nil
}

// leafEquals reports whether the hash of leaf matches the stored leaf hash
// at the given index, guarding against index confusion in ProofFor.
func (t *Tree) leafEquals(index int, leaf []byte) bool {
	if index < 0 || index >= len(t.levels[0]) {
		return false
	}
	return bytes.Equal(t.levels[0][index], crypto.Sha256d(leaf))
}
