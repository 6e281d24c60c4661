package p2p

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, tag Tag, payload interface{}) interface{} {
	t.Helper()
	frame, err := encode(tag, payload)
	require.NoError(t, err)

	gotTag, gotPayload, err := readMessage(bytes.NewReader(frame))
	require.NoError(t, err)
	require.Equal(t, tag, gotTag)
	return gotPayload
}

func TestVersionRoundTrip(t *testing.T) {
	in := &VersionMsg{SenderAddr: "127.0.0.1:2002", ProtocolVersion: ProtocolVersion, BestHeight: 7}
	out := roundTrip(t, TagVersion, in).(*VersionMsg)
	require.Equal(t, in, out)
}

func TestInvRoundTrip(t *testing.T) {
	in := &InvMsg{SenderAddr: "127.0.0.1:2002", Type: InvBlock, Items: [][]byte{{1, 2, 3}, {4, 5, 6}}}
	out := roundTrip(t, TagInv, in).(*InvMsg)
	require.Equal(t, in, out)
}

func TestGetDataRoundTrip(t *testing.T) {
	in := &GetDataMsg{SenderAddr: "127.0.0.1:2002", Type: InvTx, ID: []byte{9, 9, 9}}
	out := roundTrip(t, TagGetData, in).(*GetDataMsg)
	require.Equal(t, in, out)
}

func TestReadMessageRejectsTruncatedFrame(t *testing.T) {
	frame, err := encode(TagGetBlocks, &GetBlocksMsg{SenderAddr: "x"})
	require.NoError(t, err)

	_, _, err = readMessage(bytes.NewReader(frame[:len(frame)-2]))
	require.Error(t, err)
}

func TestReadMessageRejectsUnknownTag(t *testing.T) {
	frame, err := encode(Tag(99), &GetBlocksMsg{SenderAddr: "x"})
	require.NoError(t, err)

	_, _, err = readMessage(bytes.NewReader(frame))
	require.Error(t, err)
}
