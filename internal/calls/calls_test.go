package calls

import "testing"

func TestPlaceAndTake(t *testing.T) {
	tr := NewTracker()

	if displaced := tr.Place("alice", "bob"); displaced != "" {
		t.Fatalf("expected no displaced caller, got %q", displaced)
	}

	caller, ok := tr.Take("bob", "")
	if !ok || caller != "alice" {
		t.Fatalf("expected to resolve alice, got %q ok=%v", caller, ok)
	}

	// The entry is consumed exactly once.
	if _, ok := tr.Take("bob", ""); ok {
		t.Fatalf("second take should find nothing")
	}
}

func TestPlaceSingleFlightReplaces(t *testing.T) {
	tr := NewTracker()

	tr.Place("alice", "x")
	if displaced := tr.Place("bob", "x"); displaced != "alice" {
		t.Fatalf("expected alice to be displaced, got %q", displaced)
	}

	caller, ok := tr.Take("x", "")
	if !ok || caller != "bob" {
		t.Fatalf("answer must resolve against the newer caller, got %q", caller)
	}
}

func TestPlaceSameCallerAgainReportsNoDisplacement(t *testing.T) {
	tr := NewTracker()

	tr.Place("alice", "bob")
	if displaced := tr.Place("alice", "bob"); displaced != "" {
		t.Fatalf("re-ring by the same caller is not a displacement, got %q", displaced)
	}
}

func TestTakeExplicitCallerWinsAndConsumes(t *testing.T) {
	tr := NewTracker()
	tr.Place("alice", "bob")

	caller, ok := tr.Take("bob", "carol")
	if !ok || caller != "carol" {
		t.Fatalf("explicit caller should win, got %q", caller)
	}
	// The tracked entry is cleared even when an explicit caller was used.
	if _, pending := tr.Pending("bob"); pending {
		t.Fatalf("pending entry should be consumed")
	}
}

func TestTakeWithNothingPending(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.Take("bob", ""); ok {
		t.Fatalf("take with no pending entry and no explicit caller must fail")
	}
}

func TestSweepDropsEitherSide(t *testing.T) {
	tr := NewTracker()
	tr.Place("alice", "bob")   // alice rings bob
	tr.Place("carol", "alice") // carol rings alice
	tr.Place("dave", "erin")   // unrelated

	if dropped := tr.Sweep("alice"); dropped != 2 {
		t.Fatalf("expected 2 entries swept, got %d", dropped)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", tr.Len())
	}
	if _, ok := tr.Pending("erin"); !ok {
		t.Fatalf("unrelated ring must survive the sweep")
	}
}

func TestSweepMultipleCodes(t *testing.T) {
	tr := NewTracker()
	tr.Place("alice", "bob")
	tr.Place("carol", "dave")

	if dropped := tr.Sweep("bob", "carol"); dropped != 2 {
		t.Fatalf("expected both entries swept, got %d", dropped)
	}
	if tr.Len() != 0 {
		t.Fatalf("expected tracker empty, got %d", tr.Len())
	}
}

func TestSweepIgnoresEmptyCode(t *testing.T) {
	tr := NewTracker()
	tr.Place("alice", "bob")

	if dropped := tr.Sweep(""); dropped != 0 {
		t.Fatalf("empty code must not match anything, dropped %d", dropped)
	}
}

func TestClear(t *testing.T) {
	tr := NewTracker()
	tr.Place("alice", "bob")
	tr.Clear("bob")
	if tr.Len() != 0 {
		t.Fatalf("expected tracker empty after clear")
	}
}
