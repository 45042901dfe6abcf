package security

import "testing"

func TestLineLimiter_AllowsFirstLine(t *testing.T) {
	l := NewLineLimiter(60)
	if err := l.Allow("sess-1"); err != nil {
		t.Errorf("expected first line allowed: %v", err)
	}
}

func TestLineLimiter_IndependentPerSession(t *testing.T) {
	l := NewLineLimiter(60)
	if err := l.Allow("sess-1"); err != nil {
		t.Errorf("expected sess-1 allowed: %v", err)
	}
	if err := l.Allow("sess-2"); err != nil {
		t.Errorf("expected sess-2 allowed independently: %v", err)
	}
}

func TestLineLimiter_BurstExceeded(t *testing.T) {
	l := NewLineLimiter(1)
	if err := l.Allow("sess-1"); err != nil {
		t.Errorf("expected first line allowed: %v", err)
	}
	denied := false
	for i := 0; i < 10; i++ {
		if err := l.Allow("sess-1"); err != nil {
			denied = true
			break
		}
	}
	if !denied {
		t.Error("expected the line rate limit to eventually deny requests")
	}
}

func TestLineLimiter_Forget(t *testing.T) {
	l := NewLineLimiter(60)
	l.Allow("sess-1")
	l.Forget("sess-1")

	l.mu.Lock()
	_, exists := l.limiters["sess-1"]
	l.mu.Unlock()
	if exists {
		t.Error("expected limiter entry to be removed after Forget")
	}
}
