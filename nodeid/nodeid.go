// Package nodeid derives a node's bind address and data directory from
// environment variables. Grounded on cli/cli.go's os.Getenv("NODE_ID")
// handling and blockchain.go's dbPath = "./tmp/blocks_%s" /
// wallets.go's walletFile templating, generalized into the
// NODE_ADDRESS/NODE_ID pair spec.md §4.12 names explicitly (the teacher
// only has NODE_ID; NODE_ADDRESS is new).
package nodeid

import (
	"os"
	"path/filepath"
)

const (
	// DefaultAddress is used when NODE_ADDRESS is unset.
	DefaultAddress = "127.0.0.1:2001"
	// DefaultID is used when NODE_ID is unset.
	DefaultID = "2001"
)

// Identity is a node's resolved bind address, id, and data directory.
type Identity struct {
	Address string
	ID      string
	DataDir string
}

// FromEnvironment reads NODE_ADDRESS and NODE_ID, applying spec.md
// §4.12's defaults when unset, and derives the isolated data directory
// data/node_<id>/. Two nodes with distinct ids can never collide on
// DataDir by construction.
func FromEnvironment() Identity {
	address := os.Getenv("NODE_ADDRESS")
	if address == "" {
		address = DefaultAddress
	}
	id := os.Getenv("NODE_ID")
	if id == "" {
		id = DefaultID
	}
	return Identity{
		Address: address,
		ID:      id,
		DataDir: filepath.Join("data", "node_"+id),
	}
}

// WalletFile is the node-scoped wallet file path within DataDir's parent
// working directory, per spec.md §6 ("wallet.dat in the working
// directory"): the teacher namespaces it by node id via a filename
// suffix rather than a subdirectory, a convention kept here.
func (id Identity) WalletFile() string {
	return "wallet_" + id.ID + ".dat"
}
