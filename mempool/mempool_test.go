package mempool

import (
	"testing"

	"github.com/duniad/duniad/blockchain"
	"github.com/stretchr/testify/require"
)

func tx(id byte) *blockchain.Transaction {
	return &blockchain.Transaction{ID: []byte{id}}
}

func TestAddRejectsDuplicate(t *testing.T) {
	m := New(10)
	require.True(t, m.Add(tx(1)))
	require.False(t, m.Add(tx(1)))
	require.Equal(t, 1, m.Len())
}

func TestCapacityEvictsOldest(t *testing.T) {
	m := New(2)
	m.Add(tx(1))
	m.Add(tx(2))
	m.Add(tx(3))

	require.Equal(t, 2, m.Len())
	require.False(t, m.Has([]byte{1}))
	require.True(t, m.Has([]byte{2}))
	require.True(t, m.Has([]byte{3}))
}

func TestRemoveAndGet(t *testing.T) {
	m := New(10)
	m.Add(tx(1))
	m.Remove([]byte{1})
	_, ok := m.Get([]byte{1})
	require.False(t, ok)
}

func TestRemoveAllSkipsCoinbase(t *testing.T) {
	m := New(10)
	m.Add(tx(1))
	m.Add(tx(2))

	coinbase := &blockchain.Transaction{
		Inputs: []blockchain.TxInput{{ID: make([]byte, 32), Vout: blockchain.CoinbaseVout}},
	}
	block := &blockchain.Block{Transactions: []*blockchain.Transaction{coinbase, tx(1)}}

	m.RemoveAll(block)
	require.False(t, m.Has([]byte{1}))
	require.True(t, m.Has([]byte{2}))
}
