package blockchain

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/gob"

	"github.com/duniad/duniad/amount"
	"github.com/duniad/duniad/crypto"
	"github.com/duniad/duniad/errkind"
)

// Transaction is an ordered list of inputs and outputs. Grounded on
// blockchain/transaction.go's Transaction/Hash/Serialize/Sign/Verify/
// TrimmedCopy, reworked in three ways the teacher gets wrong or leaves
// implicit:
//  1. The id is computed AFTER signing, over the fully signed serialized
//     form (the teacher calls SetID before Sign, so its "id" never
//     reflects the signatures it ships with).
//  2. The signing digest's pub-key-hash substitution is looked up from the
//     UTXO set (via outputLookup), not from a caller-supplied map of whole
//     previous transactions.
//  3. The digest is single SHA-256 (spec.md §4.5), not double, kept
//     distinct from the transaction id's double-SHA-256.
type Transaction struct {
	ID      []byte
	Inputs  []TxInput
	Outputs []TxOutput
}

// outputLookup resolves (txID, vout) to the output it references, the
// shape the UTXO set exposes to the signing/verification digest.
type outputLookup func(txID []byte, vout uint32) (TxOutput, bool)

// Serialize gob-encodes the transaction.
func (tx Transaction) Serialize() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(tx); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DeserializeTransaction is the inverse of Serialize.
func DeserializeTransaction(data []byte) (Transaction, error) {
	var tx Transaction
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// IsCoinbase reports whether tx is a coinbase transaction: exactly one
// input, and that input is the coinbase sentinel.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].IsCoinbase()
}

// CoinbaseTx builds the reward transaction paying reward to pubKeyHash.
// The sentinel input's signature field carries random bytes so that two
// coinbases paying the same reward to the same key get distinct ids.
func CoinbaseTx(pubKeyHash []byte, reward amount.Amount) *Transaction {
	payload := make([]byte, 20)
	if _, err := rand.Read(payload); err != nil {
		panic(err)
	}
	in := TxInput{
		ID:        make([]byte, crypto.HashSize),
		Vout:      CoinbaseVout,
		Signature: payload,
		PubKey:    nil,
	}
	out := NewTxOutput(reward, pubKeyHash)
	tx := &Transaction{Inputs: []TxInput{in}, Outputs: []TxOutput{out}}
	tx.ID = crypto.Sha256d(tx.Serialize())
	return tx
}

// trimmedCopy returns a copy with every input's Signature and PubKey
// cleared, the form both Sign and Verify hash over (after substituting
// the referenced output's pub-key-hash into the field being signed).
func (tx *Transaction) trimmedCopy() Transaction {
	inputs := make([]TxInput, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = TxInput{ID: in.ID, Vout: in.Vout}
	}
	outputs := make([]TxOutput, len(tx.Outputs))
	copy(outputs, tx.Outputs)
	return Transaction{ID: nil, Inputs: inputs, Outputs: outputs}
}

// signingDigest computes the trimmed-copy digest for input i, per
// spec.md §4.5: clear every signature, substitute input i's PubKey field
// with the pub-key-hash of the output it references, serialize, SHA-256.
func signingDigest(txCopy *Transaction, inputIndex int, lookup outputLookup) ([]byte, error) {
	in := txCopy.Inputs[inputIndex]
	referenced, ok := lookup(in.ID, in.Vout)
	if !ok {
		return nil, errkind.New(errkind.InvalidTransaction, "missing utxo for input %d", inputIndex)
	}

	txCopy.Inputs[inputIndex].PubKey = referenced.PubKeyHash
	digest := crypto.Sha256(txCopy.Serialize())
	txCopy.Inputs[inputIndex].PubKey = nil
	return digest, nil
}

// Sign signs every non-coinbase input of tx with priv, looking up each
// referenced output via lookup.
func (tx *Transaction) Sign(priv *ecdsa.PrivateKey, lookup outputLookup) error {
	if tx.IsCoinbase() {
		return nil
	}

	txCopy := tx.trimmedCopy()
	for i := range tx.Inputs {
		digest, err := signingDigest(&txCopy, i, lookup)
		if err != nil {
			return err
		}
		sig, err := crypto.Sign(priv, digest)
		if err != nil {
			return errkind.Wrap(errkind.Crypto, err, "signing input %d", i)
		}
		tx.Inputs[i].Signature = sig
	}
	return nil
}

// Verify checks every non-coinbase input's signature and pub-key-hash
// binding against lookup.
func (tx *Transaction) Verify(lookup outputLookup) error {
	if tx.IsCoinbase() {
		return nil
	}

	txCopy := tx.trimmedCopy()
	for i, in := range tx.Inputs {
		referenced, ok := lookup(in.ID, in.Vout)
		if !ok {
			return errkind.New(errkind.InvalidTransaction, "missing utxo for input %d", i)
		}
		if !bytes.Equal(crypto.Hash160(in.PubKey), referenced.PubKeyHash) {
			return errkind.New(errkind.InvalidTransaction, "input %d pubkey does not match locked output", i)
		}

		digest, err := signingDigest(&txCopy, i, lookup)
		if err != nil {
			return err
		}
		if !crypto.Verify(in.PubKey, digest, in.Signature) {
			return errkind.New(errkind.InvalidTransaction, "input %d signature verification failed", i)
		}
	}
	return nil
}

// finalizeID computes tx.ID as the double-SHA-256 of the fully signed
// serialized transaction. Must run after Sign.
func (tx *Transaction) finalizeID() {
	idCopy := *tx
	idCopy.ID = nil
	tx.ID = crypto.Sha256d(idCopy.Serialize())
}
