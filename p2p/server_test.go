package p2p

import (
	"context"
	"net"
	"testing"

	"github.com/duniad/duniad/blockchain"
	"github.com/duniad/duniad/crypto"
	"github.com/duniad/duniad/mempool"
	"github.com/duniad/duniad/nodeid"
	"github.com/duniad/duniad/peer"
	"github.com/duniad/duniad/store"
	"github.com/stretchr/testify/require"
)

func newTestChain(t *testing.T) (*blockchain.BlockChain, *blockchain.UTXOSet, []byte) {
	t.Helper()
	db := store.NewMemory()
	_, pub, err := crypto.NewKeyPair()
	require.NoError(t, err)
	hash := crypto.Hash160(pub)

	bc, err := blockchain.InitBlockChain(db, hash)
	require.NoError(t, err)
	utxo := &blockchain.UTXOSet{DB: db, Chain: bc}
	require.NoError(t, utxo.Reindex())
	return bc, utxo, hash
}

func newTestServer(t *testing.T, address string) *Server {
	t.Helper()
	bc, utxo, hash := newTestChain(t)
	return New(nodeid.Identity{Address: address, ID: "test"}, bc, utxo, mempool.New(0), peer.New(0), hash)
}

// TestSendReceivesFramedMessage dials a raw listener and checks that
// Server.send produces a frame readMessage decodes back to the original
// payload, exercising the one-shot-connect wire path over a real socket.
func TestSendReceivesFramedMessage(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan interface{}, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, payload, err := readMessage(conn)
		if err != nil {
			return
		}
		received <- payload
	}()

	s := newTestServer(t, "127.0.0.1:9")
	require.NoError(t, s.send(ln.Addr().String(), TagGetBlocks, &GetBlocksMsg{SenderAddr: s.identity.Address}))

	got := <-received
	require.Equal(t, &GetBlocksMsg{SenderAddr: s.identity.Address}, got)
}

// TestHandleGetBlocksRespondsWithInv builds a responder with one mined
// block, fires handleGetBlocks against a raw listener standing in for
// the requester, and checks the Inv payload advertises both block
// hashes.
func TestHandleGetBlocksRespondsWithInv(t *testing.T) {
	responder := newTestServer(t, "127.0.0.1:9")
	_, err := responder.chain.MineBlock(context.Background(), nil, 0, responder.minerPubKeyHash, responder.utxo)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan interface{}, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, payload, err := readMessage(conn)
		if err != nil {
			return
		}
		received <- payload
	}()

	responder.handleGetBlocks(&GetBlocksMsg{SenderAddr: ln.Addr().String()})

	inv := (<-received).(*InvMsg)
	require.Equal(t, InvBlock, inv.Type)
	require.Len(t, inv.Items, 2)
}

// TestHandleTxRejectsUnknownInput checks that an incoming transaction
// whose input references an output missing from the UTXO set is not
// admitted to the mempool.
func TestHandleTxRejectsUnknownInput(t *testing.T) {
	s := newTestServer(t, "127.0.0.1:9")
	recipientHash := crypto.Hash160([]byte("recipient-stand-in"))

	priv, pub, err := crypto.NewKeyPair()
	require.NoError(t, err)
	_ = priv
	_ = pub

	// Build a spend of the genesis coinbase using the server's own
	// miner key is awkward without exposing it; instead exercise the
	// rejection path, which needs no valid signature at all.
	bogus := &blockchain.Transaction{
		ID: []byte("not-a-real-id"),
		Inputs: []blockchain.TxInput{
			{ID: []byte("missing"), Vout: 0, PubKey: pub, Signature: []byte("sig")},
		},
		Outputs: []blockchain.TxOutput{blockchain.NewTxOutput(1, recipientHash)},
	}
	data := bogus.Serialize()
	_, err = blockchain.DeserializeTransaction(data)
	require.NoError(t, err)

	s.handleTx(&TxMsg{SenderAddr: "127.0.0.1:9999", Tx: data})
	require.False(t, s.pool.Has(bogus.ID), "a transaction referencing an unknown input must be rejected")
}
