package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := New(1, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("fourth request should be denied")
	}
	if !l.Allow("5.6.7.8") {
		t.Error("other keys have their own bucket")
	}

	l.Reset("1.2.3.4")
	if !l.Allow("1.2.3.4") {
		t.Error("reset key should be allowed again")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l := New(10, 1)
	now := time.Now()
	l.now = func() time.Time { return now }
	l.Allow("old")

	now = now.Add(time.Hour)
	l.Allow("fresh")

	if n := l.Sweep(30 * time.Minute); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := ClientIP(r); got != "10.0.0.1" {
		t.Errorf("ClientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.9" {
		t.Errorf("ClientIP with XFF = %q", got)
	}
}

func TestLoginLimiter_PerEmail(t *testing.T) {
	ll := NewLoginLimiter(100, 20)
	r := httptest.NewRequest("POST", "/api/auth/login", nil)

	allowed := 0
	for i := 0; i < 12; i++ {
		if ok, _ := ll.Check(r, "Ann@Example.com"); ok {
			allowed++
		}
	}
	if allowed != 10 {
		t.Errorf("allowed %d attempts for one email, want 10", allowed)
	}

	ll.ResetEmail("ann@example.com")
	if ok, _ := ll.Check(r, "ann@example.com"); !ok {
		t.Error("expected attempt to be allowed after ResetEmail")
	}
}
