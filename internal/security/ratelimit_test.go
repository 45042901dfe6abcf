package security

import (
	"testing"
	"time"
)

func TestSlidingLimiter_AdmitsUpToMax(t *testing.T) {
	l := NewSlidingLimiter(5, 60*time.Second)
	now := time.Now()

	for i := 0; i < 5; i++ {
		if !l.Admit("1.2.3.4", now) {
			t.Fatalf("expected admission %d to succeed", i)
		}
	}
	if l.Admit("1.2.3.4", now) {
		t.Error("expected 6th admission within the window to be rejected")
	}
}

func TestSlidingLimiter_PrunesOldEntries(t *testing.T) {
	l := NewSlidingLimiter(1, 60*time.Second)
	now := time.Now()

	if !l.Admit("1.2.3.4", now) {
		t.Fatal("expected first admission to succeed")
	}
	if l.Admit("1.2.3.4", now.Add(30*time.Second)) {
		t.Fatal("expected second admission inside the window to be rejected")
	}
	if !l.Admit("1.2.3.4", now.Add(61*time.Second)) {
		t.Error("expected admission after the window expired to succeed")
	}
}

func TestSlidingLimiter_IndependentKeys(t *testing.T) {
	l := NewSlidingLimiter(1, 60*time.Second)
	now := time.Now()

	if !l.Admit("a", now) {
		t.Fatal("expected a to be admitted")
	}
	if !l.Admit("b", now) {
		t.Error("expected b to be admitted independently of a")
	}
}

func TestSlidingLimiter_Cleanup(t *testing.T) {
	l := NewSlidingLimiter(5, 60*time.Second)
	now := time.Now()
	l.Admit("1.2.3.4", now)

	removed := l.Cleanup(now.Add(2 * time.Minute))
	if removed != 1 {
		t.Errorf("expected 1 stale key removed, got %d", removed)
	}

	if !l.Admit("1.2.3.4", now.Add(2*time.Minute)) {
		t.Error("expected admission to succeed after cleanup freed the key")
	}
}
