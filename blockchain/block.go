package blockchain

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/duniad/duniad/crypto"
	"github.com/duniad/duniad/merkle"
)

// GenesisPrevHash is the 32 zero-byte "previous hash" that marks a block
// as genesis.
var GenesisPrevHash = make([]byte, crypto.HashSize)

// Block is a header plus an ordered transaction list, the first of which
// must be coinbase. Grounded on blockchain/block.go's Block, generalized
// from the teacher's single opaque Data field (superseded by the later
// blockchain.go chapter's Height/Transactions shape) into the explicit
// header spec.md §3 names.
type Block struct {
	PrevHash     []byte
	MerkleRoot   []byte
	Timestamp    int64
	Difficulty   uint32
	Nonce        uint64
	Height       uint32
	Transactions []*Transaction
	Hash         []byte
}

// headerBytes serializes exactly the fields the block hash commits to,
// excluding Hash itself and the transaction bodies (only their Merkle
// root is committed).
func (b *Block) headerBytes() []byte {
	var buf bytes.Buffer
	buf.Write(b.PrevHash)
	buf.Write(b.MerkleRoot)
	writeUint64(&buf, uint64(b.Timestamp))
	writeUint32(&buf, b.Difficulty)
	writeUint64(&buf, b.Nonce)
	writeUint32(&buf, b.Height)
	return buf.Bytes()
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

// computeMerkleRoot commits to the ordered transaction list, per
// spec.md §4.2: leaves are the serialized transactions.
func computeMerkleRoot(txs []*Transaction) ([]byte, error) {
	leaves := make([][]byte, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.Serialize()
	}
	return merkle.Root(leaves)
}

// IsGenesis reports whether b is the chain's first block.
func (b *Block) IsGenesis() bool {
	return bytes.Equal(b.PrevHash, GenesisPrevHash)
}

// Serialize gob-encodes the full block record for storage.
func (b *Block) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeBlock is the inverse of Serialize.
func DeserializeBlock(data []byte) (*Block, error) {
	var b Block
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}
