// Package mempool holds accepted, not-yet-mined transactions. New
// relative to the teacher (which has no mempool at all — network.go
// mines every received transaction's block immediately once the
// in-memory slice reaches the threshold, with no eviction or
// revalidation policy); grounded on spec.md §3's Mempool data model and
// §9's reorg re-admission note, built in the teacher's small-mutex-guarded-
// map style (e.g. peer.Manager, written alongside this package).
package mempool

import (
	"sync"
	"time"

	"github.com/duniad/duniad/blockchain"
)

// DefaultCapacity bounds the mempool; overflow evicts the oldest entry.
const DefaultCapacity = 1000

type entry struct {
	tx       *blockchain.Transaction
	received time.Time
}

// Mempool is a bounded, insertion-ordered set of pending transactions
// keyed by id.
type Mempool struct {
	mu       sync.Mutex
	capacity int
	order    []string // tx id, oldest first
	byID     map[string]entry
}

// New returns an empty mempool with the given capacity.
func New(capacity int) *Mempool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Mempool{capacity: capacity, byID: make(map[string]entry)}
}

// Has reports whether id is already in the mempool.
func (m *Mempool) Has(id []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[string(id)]
	return ok
}

// Add inserts tx, evicting the oldest entry if capacity is exceeded.
// Returns false if tx was already present.
func (m *Mempool) Add(tx *blockchain.Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(tx.ID)
	if _, ok := m.byID[key]; ok {
		return false
	}

	m.byID[key] = entry{tx: tx, received: time.Now()}
	m.order = append(m.order, key)

	if len(m.order) > m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.byID, oldest)
	}
	return true
}

// Remove deletes id from the mempool, if present.
func (m *Mempool) Remove(id []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(id)
	if _, ok := m.byID[key]; !ok {
		return
	}
	delete(m.byID, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Get returns the transaction for id, if present.
func (m *Mempool) Get(id []byte) (*blockchain.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[string(id)]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// Len reports the current size.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// All returns every pending transaction, oldest first.
func (m *Mempool) All() []*blockchain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*blockchain.Transaction, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.byID[k].tx)
	}
	return out
}

// RemoveAll deletes every transaction in block's transaction list from
// the mempool (a newly mined or received block's contents are no longer
// pending), skipping the coinbase.
func (m *Mempool) RemoveAll(block *blockchain.Block) {
	for _, tx := range block.Transactions {
		if tx.IsCoinbase() {
			continue
		}
		m.Remove(tx.ID)
	}
}

// Readmit re-adds transactions returned by a chain reorg (spec.md §9):
// callers must revalidate each one against the new tip's UTXO set before
// calling this, since a transaction valid on the abandoned branch may no
// longer be valid on the adopted one; Readmit itself performs no
// validation, only insertion subject to the eviction policy above.
func (m *Mempool) Readmit(txs []*blockchain.Transaction) {
	for _, tx := range txs {
		m.Add(tx)
	}
}
