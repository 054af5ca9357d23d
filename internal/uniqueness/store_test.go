package uniqueness

import (
	"fmt"
	"testing"
	"time"
)

func TestHasAndAdd(t *testing.T) {
	s := New()
	if s.Has("a") {
		t.Fatal("empty store reported a hit")
	}
	s.Add("a")
	if !s.Has("a") {
		t.Fatal("added hash not found")
	}
}

func TestTTLExpiry(t *testing.T) {
	current := time.Now()
	s := New(WithTTL(time.Minute), WithClock(func() time.Time { return current }))
	s.Add("a")
	current = current.Add(2 * time.Minute)
	if s.Has("a") {
		t.Fatal("expired hash still reported present")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after expiry read, want 0", s.Len())
	}
}

func TestCapEvictsOldestFirst(t *testing.T) {
	s := New(WithMaxEntries(3))
	for i := 0; i < 4; i++ {
		s.Add(fmt.Sprintf("h%d", i))
	}
	if s.Has("h0") {
		t.Fatal("oldest entry survived past the cap")
	}
	for i := 1; i < 4; i++ {
		if !s.Has(fmt.Sprintf("h%d", i)) {
			t.Fatalf("entry h%d evicted unexpectedly", i)
		}
	}
}

func TestReAddRefreshesWithoutReordering(t *testing.T) {
	current := time.Now()
	s := New(WithMaxEntries(2), WithTTL(time.Minute), WithClock(func() time.Time { return current }))
	s.Add("a")
	current = current.Add(30 * time.Second)
	s.Add("a")
	current = current.Add(45 * time.Second)
	if !s.Has("a") {
		t.Fatal("refreshed entry expired early")
	}
	s.Add("b")
	s.Add("c")
	if s.Has("a") {
		t.Fatal("re-added entry should still be evicted first")
	}
}
