package blockchain

import (
	"bytes"
	"encoding/gob"

	"github.com/duniad/duniad/amount"
	"github.com/duniad/duniad/crypto"
)

// CoinbaseVout is the sentinel output index a coinbase input references,
// per spec.md's data model (32 zero-byte tx id, vout 0xFFFFFFFF).
const CoinbaseVout = 0xFFFFFFFF

// TxInput references a previous output by (tx id, vout). Grounded on
// blockchain/transaction.go's TxInput, generalized from `Out int` to the
// spec's `vout uint32` and from an arbitrary coinbase sentinel (ID nil,
// Out -1) to the explicit 32-zero-byte/0xFFFFFFFF sentinel.
type TxInput struct {
	ID        []byte // previous transaction id, 32 zero bytes for coinbase
	Vout      uint32 // CoinbaseVout for coinbase
	Signature []byte
	PubKey    []byte
}

// IsCoinbase reports whether this input is the coinbase sentinel.
func (in TxInput) IsCoinbase() bool {
	return len(in.ID) == crypto.HashSize && allZero(in.ID) && in.Vout == CoinbaseVout
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// UsesKey reports whether this input was signed with a key whose hash160
// equals pubKeyHash.
func (in TxInput) UsesKey(pubKeyHash []byte) bool {
	return bytes.Equal(crypto.Hash160(in.PubKey), pubKeyHash)
}

// TxOutput locks a value to an address's pub-key-hash. Grounded on
// blockchain/transaction.go's TxOutput/NewTXOutput, generalized from `int`
// to the checked amount.Amount type.
type TxOutput struct {
	Value      amount.Amount
	PubKeyHash []byte
}

// IsLockedWithKey reports whether out is spendable by the holder of
// pubKeyHash.
func (out TxOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

// NewTxOutput builds an output paying value to pubKeyHash. It does not
// decode or validate addresses; callers pass the already-decoded
// pub-key-hash.
func NewTxOutput(value amount.Amount, pubKeyHash []byte) TxOutput {
	return TxOutput{Value: value, PubKeyHash: pubKeyHash}
}

// TxOutputs is the UTXO-set record for one transaction id: the subset of
// its outputs not yet spent, indexed by their original vout.
type TxOutputs struct {
	Outputs map[uint32]TxOutput
}

// Serialize gob-encodes the outputs record for storage.
func (outs TxOutputs) Serialize() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(outs); err != nil {
		panic(err) // encoding a valid in-memory value cannot fail
	}
	return buf.Bytes()
}

// DeserializeOutputs is the inverse of Serialize.
func DeserializeOutputs(data []byte) (TxOutputs, error) {
	var outs TxOutputs
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&outs); err != nil {
		return TxOutputs{}, err
	}
	return outs, nil
}
