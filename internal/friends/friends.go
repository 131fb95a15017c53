// Package friends maintains the social graph that authorizes direct
// messaging: a transient set of outstanding friend requests per target and
// a symmetric friendship relation. Friendships are durable for the process
// lifetime and survive disconnects; pending requests do not.
package friends

import (
	"sort"
	"sync"
)

// Graph holds pending friend requests and established friendships.
type Graph struct {
	mu sync.RWMutex
	// requests maps a target code to the set of codes that asked it.
	requests map[string]map[string]struct{}
	// edges is the symmetric adjacency; b in edges[a] implies a in edges[b].
	edges map[string]map[string]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		requests: make(map[string]map[string]struct{}),
		edges:    make(map[string]map[string]struct{}),
	}
}

// Request records from in to's pending set. Returns false when an identical
// request was already outstanding (idempotent by set semantics).
func (g *Graph) Request(from, to string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.requests[to]
	if !ok {
		set = make(map[string]struct{})
		g.requests[to] = set
	}
	if _, dup := set[from]; dup {
		return false
	}
	set[from] = struct{}{}
	return true
}

// Accept consumes the pending request from requester in accepter's set and
// inserts the symmetric edge between the two. Both directions are written
// under one lock so the symmetry invariant can never be observed broken.
// Returns whether a pending request was actually consumed.
func (g *Graph) Accept(requester, accepter string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	consumed := g.dropRequestLocked(requester, accepter)
	g.linkLocked(accepter, requester)
	g.linkLocked(requester, accepter)
	return consumed
}

// Reject consumes the pending request without touching the friendship graph.
// Returns whether a pending request existed.
func (g *Graph) Reject(requester, accepter string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropRequestLocked(requester, accepter)
}

// Friends returns a sorted copy of code's adjacency set.
func (g *Graph) Friends(code string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := g.edges[code]
	out := make([]string, 0, len(set))
	for friend := range set {
		out = append(out, friend)
	}
	sort.Strings(out)
	return out
}

// IsFriend reports whether a and b are connected in the graph.
func (g *Graph) IsFriend(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.edges[a][b]
	return ok
}

// DropRequests discards the pending-request set received by code. Requests
// code itself sent to other targets are left in place.
func (g *Graph) DropRequests(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.requests, code)
}

// PendingFor returns a sorted copy of the codes currently asking code.
func (g *Graph) PendingFor(code string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := g.requests[code]
	out := make([]string, 0, len(set))
	for from := range set {
		out = append(out, from)
	}
	sort.Strings(out)
	return out
}

// Counts reports outstanding requests and friendship edges (each unordered
// pair counted once), for metrics.
func (g *Graph) Counts() (requests, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, set := range g.requests {
		requests += len(set)
	}
	for _, set := range g.edges {
		edges += len(set)
	}
	return requests, edges / 2
}

func (g *Graph) dropRequestLocked(requester, accepter string) bool {
	set, ok := g.requests[accepter]
	if !ok {
		return false
	}
	if _, present := set[requester]; !present {
		return false
	}
	delete(set, requester)
	if len(set) == 0 {
		delete(g.requests, accepter)
	}
	return true
}

func (g *Graph) linkLocked(a, b string) {
	set, ok := g.edges[a]
	if !ok {
		set = make(map[string]struct{})
		g.edges[a] = set
	}
	set[b] = struct{}{}
}
