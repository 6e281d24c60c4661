package crypto

import (
	"errors"

	"github.com/mr-tron/base58"
)

// AddressVersion is the single version byte used for every address this
// node mints. spec.md §3 fixes it at 0x00.
const AddressVersion = byte(0x00)

// ChecksumLength is the number of checksum bytes appended to a payload
// before base58 encoding.
const ChecksumLength = 4

// ErrBadChecksum is returned by Base58CheckDecode when the trailing
// checksum doesn't match the decoded payload.
var ErrBadChecksum = errors.New("crypto: base58check checksum mismatch")

// ErrBadLength is returned when a decoded payload isn't the expected size.
var ErrBadLength = errors.New("crypto: base58check payload has wrong length")

// checksum is the first ChecksumLength bytes of Sha256d(payload).
func checksum(payload []byte) []byte {
	return Sha256d(payload)[:ChecksumLength]
}

// Base58CheckEncode builds version||payload||checksum and base58-encodes it.
func Base58CheckEncode(version byte, payload []byte) string {
	versioned := make([]byte, 0, 1+len(payload)+ChecksumLength)
	versioned = append(versioned, version)
	versioned = append(versioned, payload...)
	versioned = append(versioned, checksum(versioned)...)
	return base58.Encode(versioned)
}

// Base58CheckDecode reverses Base58CheckEncode, validating the checksum and
// returning the version byte and payload separately.
func Base58CheckDecode(encoded string) (version byte, payload []byte, err error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) < 1+ChecksumLength {
		return 0, nil, ErrBadLength
	}
	body := raw[:len(raw)-ChecksumLength]
	want := raw[len(raw)-ChecksumLength:]
	got := checksum(body)
	if !bytesEqual(got, want) {
		return 0, nil, ErrBadChecksum
	}
	return body[0], body[1:], nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
