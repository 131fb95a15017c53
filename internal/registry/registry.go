// Package registry maps registered client codes to their live connections.
// A code has at most one active connection; registering again under the same
// code replaces the mapping (last register wins).
package registry

import (
	"sort"
	"sync"

	"github.com/R1ien/ultracall/internal/protocol"
)

// Conn is the write side of a client connection as seen by the registry's
// consumers. Send must never block on peer I/O.
type Conn interface {
	Send(protocol.Event) error
}

// Registry tracks which connection currently owns each code.
type Registry interface {
	Bind(code string, conn Conn) Conn
	Lookup(code string) (Conn, bool)
	Unbind(code string, conn Conn) bool
	Codes() []string
	Len() int
}

// InMemoryRegistry is a map-backed registry; all state is volatile.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewInMemory creates an empty registry.
func NewInMemory() *InMemoryRegistry {
	return &InMemoryRegistry{conns: make(map[string]Conn)}
}

// Bind unconditionally installs the mapping for code and returns the
// connection it displaced, or nil when the code was free or already bound
// to the same connection.
func (r *InMemoryRegistry) Bind(code string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[code]
	r.conns[code] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// Lookup fetches the connection bound to code.
func (r *InMemoryRegistry) Lookup(code string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[code]
	return conn, ok
}

// Unbind removes the mapping only if it still points at conn. A stale close
// must not evict a newer registration under the same code.
func (r *InMemoryRegistry) Unbind(code string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[code]
	if !ok || current != conn {
		return false
	}
	delete(r.conns, code)
	return true
}

// Codes enumerates currently registered codes in sorted order.
func (r *InMemoryRegistry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.conns))
	for code := range r.conns {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of registered codes.
func (r *InMemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
