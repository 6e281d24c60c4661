package wallet

import (
	"bytes"
	"encoding/gob"
	"os"
	"sort"
)

// Wallets is a named collection of wallets persisted together in one file.
// Grounded on wallet/wallets.go's Wallets/CreateWallets/AddWallet/
// GetWallet/GetAllAddresses/LoadFile/SaveFile.
type Wallets struct {
	Wallets map[string]*Wallet
}

// NewWallets returns an empty collection.
func NewWallets() *Wallets {
	return &Wallets{Wallets: make(map[string]*Wallet)}
}

// AddWallet generates a new wallet, adds it to the collection and returns
// its address.
func (ws *Wallets) AddWallet() (string, error) {
	w, err := New()
	if err != nil {
		return "", err
	}
	address := w.Address()
	ws.Wallets[address] = w
	return address, nil
}

// GetWallet returns the wallet for address, or ErrWalletNotFound.
func (ws *Wallets) GetWallet(address string) (*Wallet, error) {
	w, ok := ws.Wallets[address]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

// GetAllAddresses returns every address in the collection, sorted for
// deterministic CLI output.
func (ws *Wallets) GetAllAddresses() []string {
	addresses := make([]string, 0, len(ws.Wallets))
	for address := range ws.Wallets {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// LoadFile reads a wallet collection from path. If encryption material was
// used to save the file (see SaveEncryptedFile), passphrase must be supplied
// via LoadEncryptedFile instead; a plaintext LoadFile call against an
// encrypted file fails with a gob decode error.
func LoadFile(path string) (*Wallets, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewWallets(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ws Wallets
	dec := gob.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// SaveFile writes the collection to path in plaintext gob form.
func (ws *Wallets) SaveFile(path string) error {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(ws); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// LoadEncryptedFile reads a wallet collection that was saved with
// SaveEncryptedFile, decrypting it with passphrase first.
func LoadEncryptedFile(path, passphrase string) (*Wallets, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewWallets(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	plaintext, err := decrypt(raw, passphrase)
	if err != nil {
		return nil, err
	}

	var ws Wallets
	dec := gob.NewDecoder(bytes.NewReader(plaintext))
	if err := dec.Decode(&ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// SaveEncryptedFile gob-encodes the collection and encrypts it with
// AES-256-GCM under a PBKDF2-derived key, per spec.md §6's optional wallet
// encryption.
func (ws *Wallets) SaveEncryptedFile(path, passphrase string) error {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(ws); err != nil {
		return err
	}

	ciphertext, err := encrypt(buf.Bytes(), passphrase)
	if err != nil {
		return err
	}
	return os.WriteFile(path, ciphertext, 0600)
}
