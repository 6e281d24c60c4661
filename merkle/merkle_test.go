package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func leaves(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i)}
	}
	return out
}

func TestRootIsDeterministic(t *testing.T) {
	a, err := Root(leaves(5))
	require.NoError(t, err)
	b, err := Root(leaves(5))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestOddCountDuplicatesLast(t *testing.T) {
	odd, err := Root(leaves(3))
	require.NoError(t, err)
	padded, err := Root(append(leaves(3), leaves(3)[2]))
	require.NoError(t, err)
	require.Equal(t, padded, odd)
}

func TestEmptyLeavesRejected(t *testing.T) {
	_, err := NewTree(nil)
	require.ErrorIs(t, err, ErrEmptyLeaves)
}

func TestProofRoundTripForEveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 7, 8} {
		ls := leaves(n)
		tree, err := NewTree(ls)
		require.NoError(t, err)
		root := tree.Root()

		for i, leaf := range ls {
			proof, err := tree.ProofFor(i, leaf)
			require.NoError(t, err)
			require.True(t, VerifyProof(leaf, proof, root), "leaf %d of %d", i, n)
		}
	}
}

func TestProofForWrongLeafFails(t *testing.T) {
	ls := leaves(4)
	tree, err := NewTree(ls)
	require.NoError(t, err)

	_, err = tree.ProofFor(1, []byte{99})
	require.ErrorIs(t, err, ErrLeafNotFound)
}

func TestVerifyProofRejectsTamperedRoot(t *testing.T) {
	ls := leaves(4)
	tree, err := NewTree(ls)
	require.NoError(t, err)

	proof, err := tree.ProofFor(0, ls[0])
	require.NoError(t, err)

	wrongRoot := append([]byte{}, tree.Root()...)
	wrongRoot[0] ^= 0xFF
	require.False(t, VerifyProof(ls[0], proof, wrongRoot))
}
