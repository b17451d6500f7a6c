package buffer

import "testing"

func TestLRUReplacerVictimOrder(t *testing.T) {
	r := NewLRUReplacer(7)

	// Scenario: unpin six frames, pin two of them back, leaving four.
	for _, id := range []FrameID{1, 2, 3, 4, 5, 6} {
		r.Unpin(id)
	}
	if got := r.Size(); got != 6 {
		t.Fatalf("expected size 6, got %d", got)
	}

	r.Pin(3)
	r.Pin(4)
	if got := r.Size(); got != 4 {
		t.Fatalf("expected size 4, got %d", got)
	}

	// Scenario: victims come out in least-recently-unpinned order.
	want := []FrameID{1, 2, 5, 6}
	for _, w := range want {
		got, ok := r.Victim()
		if !ok {
			t.Fatalf("expected a victim, got none")
		}
		if got != w {
			t.Fatalf("expected victim %d, got %d", w, got)
		}
	}

	if _, ok := r.Victim(); ok {
		t.Fatalf("expected no victim once replacer is empty")
	}
}

func TestLRUReplacerRepeatedUnpinDoesNotBump(t *testing.T) {
	r := NewLRUReplacer(3)
	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(1) // no-op: already present

	got, ok := r.Victim()
	if !ok || got != 1 {
		t.Fatalf("expected frame 1 as first victim, got %d (ok=%v)", got, ok)
	}
}
