package wallet

import "errors"

var (
	// ErrInvalidAddress is returned for malformed or checksum-invalid addresses.
	ErrInvalidAddress = errors.New("wallet: invalid address")

	// ErrWalletNotFound is returned when an address has no matching wallet.
	ErrWalletNotFound = errors.New("wallet: no wallet for address")

	// ErrWrongPassphrase is returned when decrypting a wallet file with the
	// wrong passphrase; AES-GCM authentication fails closed.
	ErrWrongPassphrase = errors.New("wallet: wrong passphrase or corrupted file")
)
