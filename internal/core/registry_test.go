package core

import (
	"sort"
	"testing"
)

func TestRegistryJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := NewConnection("c1", "u1", 1)

	if !r.Join(c) {
		t.Fatalf("first join should add")
	}
	if r.Join(c) {
		t.Fatalf("second join should be a no-op")
	}

	members := r.Members()
	if len(members) != 1 || members[0] != "c1" {
		t.Fatalf("expected exactly [c1], got %v", members)
	}
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := NewConnection("c1", "u1", 1)
	r.Join(c)

	if !r.Leave("c1") {
		t.Fatalf("leave should remove member")
	}
	if r.Leave("c1") {
		t.Fatalf("second leave should be a no-op")
	}
	if r.Leave("never-joined") {
		t.Fatalf("leave of unknown id should be a no-op")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistrySnapshotIsStable(t *testing.T) {
	r := NewRegistry()
	a := NewConnection("a", "", 1)
	b := NewConnection("b", "", 1)
	r.Join(a)
	r.Join(b)

	snap := r.Snapshot()
	ids := r.Members()

	r.Leave("a")
	r.Join(NewConnection("c", "", 1))

	if len(snap) != 2 {
		t.Fatalf("snapshot changed after mutation: %d entries", len(snap))
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected member snapshot %v", ids)
	}
	if r.contains("a") || !r.contains("c") {
		t.Fatalf("live membership not updated")
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()
	a := NewConnection("a", "", 1)
	a.open()
	r.Join(a)

	if n := r.CloseAll(); n != 1 {
		t.Fatalf("expected 1 closed, got %d", n)
	}
	if a.State() != StateClosed || a.CloseReason() != CloseShutdown {
		t.Fatalf("expected closed by shutdown, got %v/%v", a.State(), a.CloseReason())
	}
	if r.Len() != 0 {
		t.Fatalf("registry not emptied")
	}
}

func TestConnectionLifecycle(t *testing.T) {
	c := NewConnection("c", "u", 1)
	if c.State() != StateConnecting {
		t.Fatalf("new connection should be connecting, got %v", c.State())
	}
	if err := c.Deliver(&Event{}); err == nil {
		t.Fatalf("delivery before open should fail")
	}
	if !c.open() || c.open() {
		t.Fatalf("open should succeed exactly once")
	}

	if err := c.Deliver(&Event{Kind: EventJoined}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	// Outbox of one is now full: the next delivery evicts the slow consumer.
	if err := c.Deliver(&Event{Kind: EventJoined}); err == nil {
		t.Fatalf("expected overflow error")
	}
	select {
	case <-c.Done():
	default:
		t.Fatalf("overflow should close the connection")
	}
	if c.CloseReason() != CloseSlowConsumer {
		t.Fatalf("expected slow consumer reason, got %v", c.CloseReason())
	}
	if c.Close(CloseNormal) {
		t.Fatalf("close after close should report false")
	}
}
