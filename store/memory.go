package store

import (
	"bytes"
	"sort"
	"sync"
)

// memoryDB is a map-backed DB used only by tests, so blockchain/UTXO logic
// can be exercised without standing up a badger instance on disk. It
// implements the same interface badgerDB does, so nothing in this package
// or its callers distinguishes between the two.
type memoryDB struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory DB.
func NewMemory() DB {
	return &memoryDB{data: make(map[string][]byte)}
}

func (m *memoryDB) View(fn func(Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memoryTxn{db: m, readOnly: true})
}

func (m *memoryDB) Update(fn func(Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		staged[k] = v
	}
	deleted := make(map[string]bool)

	txn := &memoryTxn{db: m, staged: staged, deleted: deleted}
	if err := fn(txn); err != nil {
		return err
	}
	m.data = staged
	return nil
}

func (m *memoryDB) Close() error { return nil }

type memoryTxn struct {
	db       *memoryDB
	readOnly bool
	staged   map[string][]byte
	deleted  map[string]bool
}

func (t *memoryTxn) Get(key []byte) ([]byte, error) {
	src := t.db.data
	if !t.readOnly {
		src = t.staged
	}
	v, ok := src[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *memoryTxn) Set(key, value []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	t.staged[string(key)] = cp
	return nil
}

func (t *memoryTxn) Delete(key []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	delete(t.staged, string(key))
	return nil
}

func (t *memoryTxn) NewIterator(prefix []byte) Iterator {
	src := t.db.data
	if !t.readOnly {
		src = t.staged
	}
	var keys []string
	for k := range src {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memoryIterator{src: src, keys: keys, pos: -1}
}

type memoryIterator struct {
	src  map[string][]byte
	keys []string
	pos  int
}

func (it *memoryIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memoryIterator) Key() []byte {
	return []byte(it.keys[it.pos])
}

func (it *memoryIterator) Value() ([]byte, error) {
	v := it.src[it.keys[it.pos]]
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (it *memoryIterator) Close() {}

var errReadOnly = errReadOnlyType{}

type errReadOnlyType struct{}

func (errReadOnlyType) Error() string { return "store: write attempted in read-only transaction" }
