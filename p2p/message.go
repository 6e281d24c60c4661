// Package p2p implements the node's gossip wire protocol and server:
// connection accept loop, message framing, and the sync state machine.
// Grounded throughout on network/network.go, replacing its 12-byte
// ASCII-command-plus-gob framing with the length-prefixed tagged-union
// format spec.md §4.10 specifies.
package p2p

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/duniad/duniad/errkind"
)

// ProtocolVersion is exchanged in every Version message.
const ProtocolVersion = 1

// Tag identifies a message's payload variant on the wire.
type Tag uint8

const (
	TagVersion Tag = iota
	TagGetBlocks
	TagInv
	TagGetData
	TagBlock
	TagTx
)

func (t Tag) String() string {
	switch t {
	case TagVersion:
		return "version"
	case TagGetBlocks:
		return "getblocks"
	case TagInv:
		return "inv"
	case TagGetData:
		return "getdata"
	case TagBlock:
		return "block"
	case TagTx:
		return "tx"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// InvType distinguishes the two kinds of inventory item.
type InvType uint8

const (
	InvBlock InvType = iota
	InvTx
)

// VersionMsg introduces a node and its chain height to a peer.
type VersionMsg struct {
	SenderAddr      string
	ProtocolVersion uint32
	BestHeight      uint32
}

// GetBlocksMsg asks a peer for the hashes of every block it knows.
type GetBlocksMsg struct {
	SenderAddr string
}

// InvMsg advertises available items (blocks or transactions) by id.
type InvMsg struct {
	SenderAddr string
	Type       InvType
	Items      [][]byte
}

// GetDataMsg requests a single item by id.
type GetDataMsg struct {
	SenderAddr string
	Type       InvType
	ID         []byte
}

// BlockMsg carries one serialized block.
type BlockMsg struct {
	SenderAddr string
	Block      []byte
}

// TxMsg carries one serialized transaction.
type TxMsg struct {
	SenderAddr string
	Tx         []byte
}

// encode serializes tag and payload into one length-prefixed frame:
// a u32 big-endian byte count, then a leading variant tag (u8), then
// the gob-encoded payload. Grounded on spec.md §4.10's framing
// paragraph; the teacher's 12-byte fixed ASCII command is replaced by
// the explicit tag byte the spec calls for.
func encode(tag Tag, payload interface{}) ([]byte, error) {
	var body bytes.Buffer
	body.WriteByte(byte(tag))
	if err := gob.NewEncoder(&body).Encode(payload); err != nil {
		return nil, errkind.Wrap(errkind.NetworkError, err, "encoding %s message", tag)
	}

	var frame bytes.Buffer
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(body.Len()))
	frame.Write(lenPrefix[:])
	frame.Write(body.Bytes())
	return frame.Bytes(), nil
}

// readMessage reads one length-prefixed frame from r and decodes it
// into the variant its tag names. The returned value is one of
// *VersionMsg, *GetBlocksMsg, *InvMsg, *GetDataMsg, *BlockMsg, *TxMsg.
func readMessage(r io.Reader) (Tag, interface{}, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return 0, nil, err
	}
	size := binary.BigEndian.Uint32(lenPrefix[:])

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, errkind.Wrap(errkind.NetworkError, err, "reading message body")
	}
	if len(body) == 0 {
		return 0, nil, errkind.New(errkind.NetworkError, "empty message frame")
	}
	tag := Tag(body[0])
	dec := gob.NewDecoder(bytes.NewReader(body[1:]))

	var payload interface{}
	switch tag {
	case TagVersion:
		var m VersionMsg
		payload = &m
		if err := dec.Decode(&m); err != nil {
			return 0, nil, errkind.Wrap(errkind.NetworkError, err, "decoding version message")
		}
	case TagGetBlocks:
		var m GetBlocksMsg
		payload = &m
		if err := dec.Decode(&m); err != nil {
			return 0, nil, errkind.Wrap(errkind.NetworkError, err, "decoding getblocks message")
		}
	case TagInv:
		var m InvMsg
		payload = &m
		if err := dec.Decode(&m); err != nil {
			return 0, nil, errkind.Wrap(errkind.NetworkError, err, "decoding inv message")
		}
	case TagGetData:
		var m GetDataMsg
		payload = &m
		if err := dec.Decode(&m); err != nil {
			return 0, nil, errkind.Wrap(errkind.NetworkError, err, "decoding getdata message")
		}
	case TagBlock:
		var m BlockMsg
		payload = &m
		if err := dec.Decode(&m); err != nil {
			return 0, nil, errkind.Wrap(errkind.NetworkError, err, "decoding block message")
		}
	case TagTx:
		var m TxMsg
		payload = &m
		if err := dec.Decode(&m); err != nil {
			return 0, nil, errkind.Wrap(errkind.NetworkError, err, "decoding tx message")
		}
	default:
		return 0, nil, errkind.New(errkind.NetworkError, "unknown message tag %d", tag)
	}
	return tag, payload, nil
}
