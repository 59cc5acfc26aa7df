package history

import "testing"

func TestValueAt_Empty(t *testing.T) {
	q := NewQueue(8)
	if _, ok := q.ValueAt(1000); ok {
		t.Fatalf("expected ok=false on empty queue")
	}
}

func TestValueAt_NewestNotAfter(t *testing.T) {
	q := NewQueue(8)
	// Samples every 20ms starting at t=1_000_000us.
	for i := 0; i < 8; i++ {
		q.Push(1_000_000+uint32(i)*20_000, float64(i))
	}

	cases := []struct {
		at   uint32
		want float64
	}{
		{1_000_000, 0},          // exact match on oldest
		{1_059_999, 2},          // just before sample 3
		{1_060_000, 3},          // exact match mid-queue
		{1_140_000, 7},          // exact match on newest
		{2_000_000, 7},          // far future: newest retained
	}
	for _, c := range cases {
		got, ok := q.ValueAt(c.at)
		if !ok || got != c.want {
			t.Fatalf("ValueAt(%d)=%v,%v want %v,true", c.at, got, ok, c.want)
		}
	}
}

func TestValueAt_BeforeOldestReturnsOldest(t *testing.T) {
	q := NewQueue(4)
	q.Push(500_000, 11)
	q.Push(520_000, 12)
	got, ok := q.ValueAt(100_000)
	if !ok || got != 11 {
		t.Fatalf("ValueAt=%v,%v want 11,true", got, ok)
	}
}

func TestPush_EvictsOldestFirst(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 6; i++ {
		q.Push(uint32(i)*10_000, float64(i))
	}
	if q.Len() != 4 {
		t.Fatalf("len=%d want 4", q.Len())
	}
	// Samples 0 and 1 are gone; a lookup before sample 2 must return
	// sample 2's value (the oldest retained).
	got, ok := q.ValueAt(5_000)
	if !ok || got != 2 {
		t.Fatalf("ValueAt=%v,%v want 2,true", got, ok)
	}
}

func TestValueAt_ClockWraparound(t *testing.T) {
	// Timestamps straddling the uint32 boundary must still compare in time
	// order, not numeric order.
	q := NewQueue(4)
	q.Push(0xFFFF_F000, 1)
	q.Push(0xFFFF_FF00, 2)
	q.Push(0x0000_0100, 3) // after wrap

	got, ok := q.ValueAt(0x0000_0050) // between samples 2 and 3
	if !ok || got != 2 {
		t.Fatalf("ValueAt=%v,%v want 2,true", got, ok)
	}
	got, ok = q.ValueAt(0x0000_0200)
	if !ok || got != 3 {
		t.Fatalf("ValueAt=%v,%v want 3,true", got, ok)
	}
}

func TestReset_Empties(t *testing.T) {
	q := NewQueue(4)
	q.Push(100, 1)
	q.Reset()
	if q.Len() != 0 {
		t.Fatalf("len=%d want 0", q.Len())
	}
	if _, ok := q.ValueAt(100); ok {
		t.Fatalf("expected ok=false after reset")
	}
}
