// Package peer tracks known peer addresses. Grounded on
// network.go's package-level KnownNodes []string, generalized from an
// unbounded global slice into a bounded, timestamped, mutex-guarded set
// per spec.md §4.9.
package peer

import (
	"sync"
	"time"

	"github.com/duniad/duniad/errkind"
)

// DefaultCapacity is the default bound on known peers.
const DefaultCapacity = 32

// ErrPeerCapacityExceeded is returned by Add when the manager is full and
// addr is not already known.
var ErrPeerCapacityExceeded = errkind.New(errkind.NetworkError, "peer capacity exceeded")

// Manager is a bounded set of known peer addresses with last-seen
// timestamps. No scoring, no banning — every peer is equal, per
// spec.md §4.9.
type Manager struct {
	mu       sync.Mutex
	capacity int
	lastSeen map[string]time.Time
}

// New returns an empty Manager with the given capacity (DefaultCapacity
// if cap <= 0).
func New(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity, lastSeen: make(map[string]time.Time)}
}

// Add records addr as known, refreshing its last-seen time. Rejects new
// peers once the manager is at capacity.
func (m *Manager) Add(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, known := m.lastSeen[addr]; !known && len(m.lastSeen) >= m.capacity {
		return ErrPeerCapacityExceeded
	}
	m.lastSeen[addr] = time.Now()
	return nil
}

// Remove forgets addr.
func (m *Manager) Remove(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastSeen, addr)
}

// Has reports whether addr is currently known.
func (m *Manager) Has(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lastSeen[addr]
	return ok
}

// KnownPeers returns every known peer address.
func (m *Manager) KnownPeers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.lastSeen))
	for addr := range m.lastSeen {
		out = append(out, addr)
	}
	return out
}

// Count reports how many peers are currently known.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lastSeen)
}
