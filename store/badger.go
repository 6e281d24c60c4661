package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// badgerDB adapts *badger.DB to the DB interface. Grounded on the teacher's
// blockchain.go (openDB/retry, DefaultOptions().WithLogger(nil)) and
// utxo.go/chain_iter.go (View/Update/iterator usage).
type badgerDB struct {
	db *badger.DB
}

// Exists reports whether a badger database already lives at path, mirroring
// the teacher's DBExists (checking for the MANIFEST file badger writes on
// first open).
func Exists(path string) bool {
	_, err := os.Stat(filepath.Join(path, "MANIFEST"))
	return !os.IsNotExist(err)
}

// OpenBadger opens (creating if necessary) a badger-backed DB at path.
func OpenBadger(path string) (DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := openWithLockRetry(path, opts)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &badgerDB{db: db}, nil
}

// openWithLockRetry mirrors the teacher's retry/openDB pair: a stale LOCK
// file left by an unclean shutdown is removed once, then the open is
// retried exactly once.
func openWithLockRetry(path string, opts badger.Options) (*badger.DB, error) {
	db, err := badger.Open(opts)
	if err == nil {
		return db, nil
	}
	if !strings.Contains(err.Error(), "LOCK") {
		return nil, err
	}
	lockPath := filepath.Join(path, "LOCK")
	if rmErr := os.Remove(lockPath); rmErr != nil {
		return nil, fmt.Errorf("could not remove stale lock: %w (original error: %v)", rmErr, err)
	}
	return badger.Open(opts)
}

func (b *badgerDB) View(fn func(Txn) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (b *badgerDB) Update(fn func(Txn) error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (b *badgerDB) Close() error {
	return b.db.Close()
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Set(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t *badgerTxn) Delete(key []byte) error {
	return t.txn.Delete(key)
}

func (t *badgerTxn) NewIterator(prefix []byte) Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	it.Seek(prefix)
	return &badgerIterator{it: it, prefix: prefix, started: false}
}

type badgerIterator struct {
	it      *badger.Iterator
	prefix  []byte
	started bool
}

func (i *badgerIterator) Next() bool {
	if !i.started {
		i.started = true
	} else {
		i.it.Next()
	}
	return i.it.ValidForPrefix(i.prefix)
}

func (i *badgerIterator) Key() []byte {
	return i.it.Item().KeyCopy(nil)
}

func (i *badgerIterator) Value() ([]byte, error) {
	return i.it.Item().ValueCopy(nil)
}

func (i *badgerIterator) Close() {
	i.it.Close()
}
