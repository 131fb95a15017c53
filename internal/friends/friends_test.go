package friends

import (
	"reflect"
	"testing"
)

func TestRequestIsIdempotent(t *testing.T) {
	g := NewGraph()

	if !g.Request("alice", "bob") {
		t.Fatalf("first request should be recorded as new")
	}
	if g.Request("alice", "bob") {
		t.Fatalf("duplicate request should not be recorded as new")
	}

	if got := g.PendingFor("bob"); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("expected pending [alice], got %v", got)
	}
}

func TestAcceptInsertsSymmetricEdge(t *testing.T) {
	g := NewGraph()
	g.Request("alice", "bob")

	if !g.Accept("alice", "bob") {
		t.Fatalf("accept should consume the pending request")
	}

	if !g.IsFriend("alice", "bob") || !g.IsFriend("bob", "alice") {
		t.Fatalf("friendship must hold in both directions")
	}
	if got := g.Friends("alice"); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("expected alice's friends [bob], got %v", got)
	}
	if got := g.Friends("bob"); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("expected bob's friends [alice], got %v", got)
	}
	if got := g.PendingFor("bob"); len(got) != 0 {
		t.Fatalf("pending request should be consumed, got %v", got)
	}
}

func TestRejectLeavesGraphUntouched(t *testing.T) {
	g := NewGraph()
	g.Request("alice", "bob")

	if !g.Reject("alice", "bob") {
		t.Fatalf("reject should consume the pending request")
	}
	if g.Reject("alice", "bob") {
		t.Fatalf("second reject should find nothing to consume")
	}
	if g.IsFriend("alice", "bob") {
		t.Fatalf("reject must not create a friendship")
	}
}

func TestDropRequestsOnlyDropsReceivedSet(t *testing.T) {
	g := NewGraph()
	g.Request("alice", "bob") // received by bob
	g.Request("bob", "carol") // sent by bob

	g.DropRequests("bob")

	if got := g.PendingFor("bob"); len(got) != 0 {
		t.Fatalf("bob's received set should be discarded, got %v", got)
	}
	// The request bob sent stays outstanding in carol's set.
	if got := g.PendingFor("carol"); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("expected carol's pending [bob], got %v", got)
	}
}

func TestFriendshipsSurviveRequestSweep(t *testing.T) {
	g := NewGraph()
	g.Request("alice", "bob")
	g.Accept("alice", "bob")

	g.DropRequests("alice")
	g.DropRequests("bob")

	if !g.IsFriend("alice", "bob") {
		t.Fatalf("friendships must survive request sweeps")
	}
}

func TestFriendsSorted(t *testing.T) {
	g := NewGraph()
	for _, code := range []string{"zoe", "bob", "mina"} {
		g.Request(code, "alice")
		g.Accept(code, "alice")
	}

	if got := g.Friends("alice"); !reflect.DeepEqual(got, []string{"bob", "mina", "zoe"}) {
		t.Fatalf("expected sorted friends, got %v", got)
	}
}

func TestCounts(t *testing.T) {
	g := NewGraph()
	g.Request("alice", "bob")
	g.Request("carol", "bob")
	g.Request("alice", "dave")
	g.Accept("alice", "dave")

	requests, edges := g.Counts()
	if requests != 2 {
		t.Fatalf("expected 2 outstanding requests, got %d", requests)
	}
	if edges != 1 {
		t.Fatalf("expected 1 friendship edge, got %d", edges)
	}
}
