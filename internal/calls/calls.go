// Package calls tracks rings in progress. A pending call is keyed by the
// callee and names the current caller; each callee has at most one pending
// inbound call (single-flight), and a newer call to the same callee silently
// replaces the older one. There is no server-side notion of an active call:
// once answered, the parties talk through the opaque signaling relay and the
// tracker forgets them.
package calls

import "sync"

// Tracker maps callee code -> caller code for rings awaiting resolution.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[string]string)}
}

// Place records caller ringing callee and returns the caller it displaced,
// if a ring was already pending for that callee.
func (t *Tracker) Place(caller, callee string) (displaced string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	displaced = t.pending[callee]
	if displaced == caller {
		displaced = ""
	}
	t.pending[callee] = caller
	return displaced
}

// Take resolves the caller for callee and consumes the pending entry in one
// step, so two racing answer/reject attempts cannot both resolve. An
// explicit caller wins over the tracked entry; the entry is deleted either
// way. ok is false when neither resolves a caller.
func (t *Tracker) Take(callee, explicit string) (caller string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	caller = explicit
	if caller == "" {
		caller = t.pending[callee]
	}
	delete(t.pending, callee)
	return caller, caller != ""
}

// Pending reports the caller currently ringing callee, without consuming it.
func (t *Tracker) Pending(callee string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	caller, ok := t.pending[callee]
	return caller, ok
}

// Clear drops the pending entry for callee, if any.
func (t *Tracker) Clear(callee string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, callee)
}

// Sweep removes every pending entry where code is the caller or the callee
// and returns how many entries were dropped. Used on hangup and disconnect.
func (t *Tracker) Sweep(codes ...string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	dropped := 0
	for callee, caller := range t.pending {
		for _, code := range codes {
			if code == "" {
				continue
			}
			if callee == code || caller == code {
				delete(t.pending, callee)
				dropped++
				break
			}
		}
	}
	return dropped
}

// Len reports the number of rings in progress.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
