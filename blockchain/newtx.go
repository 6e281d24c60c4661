package blockchain

import (
	"crypto/ecdsa"

	"github.com/duniad/duniad/amount"
	"github.com/duniad/duniad/errkind"
)

// NewTransaction builds a signed transaction spending fromPubKeyHash's
// UTXOs to cover value plus fee, paying the recipient toPubKeyHash and
// returning any change to the sender. Grounded on
// blockchain/transaction.go's NewTransaction, split out of the CLI's
// direct wallet-file access (fee computation and wallet lookup are the
// caller's job; this only needs the keys and the UTXO set) and fixed to
// compute the id after signing rather than before (see the Transaction
// type's doc).
func NewTransaction(utxo *UTXOSet, priv *ecdsa.PrivateKey, pubKey []byte, fromPubKeyHash, toPubKeyHash []byte, value, txFee amount.Amount) (*Transaction, error) {
	need, err := value.Add(txFee)
	if err != nil {
		return nil, errkind.Wrap(errkind.InvalidTransaction, err, "computing required amount")
	}

	accumulated, selected, err := utxo.FindSpendableOutputs(fromPubKeyHash, need)
	if err != nil {
		return nil, err
	}
	if accumulated < need {
		return nil, errkind.InsufficientFundsError(int64(accumulated), int64(need))
	}

	var inputs []TxInput
	for txIDStr, vouts := range selected {
		for _, vout := range vouts {
			inputs = append(inputs, TxInput{
				ID:     []byte(txIDStr),
				Vout:   vout,
				PubKey: pubKey,
			})
		}
	}

	change, err := accumulated.Sub(need)
	if err != nil {
		return nil, errkind.Wrap(errkind.InvalidTransaction, err, "computing change")
	}
	outputs := []TxOutput{NewTxOutput(value, toPubKeyHash)}
	if change > 0 {
		outputs = append(outputs, NewTxOutput(change, fromPubKeyHash))
	}

	tx := &Transaction{Inputs: inputs, Outputs: outputs}
	if err := tx.Sign(priv, utxo.lookup); err != nil {
		return nil, err
	}
	tx.finalizeID()
	return tx, nil
}
