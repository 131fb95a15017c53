package registry

import (
	"testing"

	"github.com/R1ien/ultracall/internal/protocol"
)

type fakeConn struct {
	sent []protocol.Event
}

func (f *fakeConn) Send(ev protocol.Event) error {
	f.sent = append(f.sent, ev)
	return nil
}

func TestBindAndLookup(t *testing.T) {
	reg := NewInMemory()
	c1 := &fakeConn{}

	if prev := reg.Bind("alice", c1); prev != nil {
		t.Fatalf("expected no displaced conn, got %v", prev)
	}

	got, ok := reg.Lookup("alice")
	if !ok || got != Conn(c1) {
		t.Fatalf("lookup did not resolve to bound conn")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", reg.Len())
	}
}

func TestBindLastRegisterWins(t *testing.T) {
	reg := NewInMemory()
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	reg.Bind("alice", c1)
	prev := reg.Bind("alice", c2)
	if prev != Conn(c1) {
		t.Fatalf("expected c1 to be displaced")
	}

	got, ok := reg.Lookup("alice")
	if !ok || got != Conn(c2) {
		t.Fatalf("expected lookup to resolve to the newer conn")
	}
}

func TestBindSameConnTwiceDisplacesNothing(t *testing.T) {
	reg := NewInMemory()
	c1 := &fakeConn{}

	reg.Bind("alice", c1)
	if prev := reg.Bind("alice", c1); prev != nil {
		t.Fatalf("rebinding the same conn must not report a displacement")
	}
}

func TestUnbindOnlyRemovesOwnBinding(t *testing.T) {
	reg := NewInMemory()
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	reg.Bind("alice", c1)
	reg.Bind("alice", c2)

	// A stale close from the displaced conn must not evict the newer one.
	if reg.Unbind("alice", c1) {
		t.Fatalf("stale unbind should be refused")
	}
	if _, ok := reg.Lookup("alice"); !ok {
		t.Fatalf("newer binding was evicted by a stale unbind")
	}

	if !reg.Unbind("alice", c2) {
		t.Fatalf("owner unbind should succeed")
	}
	if _, ok := reg.Lookup("alice"); ok {
		t.Fatalf("binding should be gone after owner unbind")
	}
}

func TestUnbindUnknownCode(t *testing.T) {
	reg := NewInMemory()
	if reg.Unbind("ghost", &fakeConn{}) {
		t.Fatalf("unbinding an unknown code should report false")
	}
}

func TestCodesSorted(t *testing.T) {
	reg := NewInMemory()
	for _, code := range []string{"zoe", "alice", "mina"} {
		reg.Bind(code, &fakeConn{})
	}

	codes := reg.Codes()
	want := []string{"alice", "mina", "zoe"}
	if len(codes) != len(want) {
		t.Fatalf("expected %d codes, got %d", len(want), len(codes))
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("expected codes %v, got %v", want, codes)
		}
	}
}
