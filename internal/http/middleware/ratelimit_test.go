package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Stop()

	for i := range 3 {
		if !rl.Allow("client-a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("client-a") {
		t.Error("request over the limit should be rejected")
	}
	if !rl.Allow("client-b") {
		t.Error("a different key has its own window")
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	defer rl.Stop()

	if !rl.Allow("client") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("client") {
		t.Fatal("second request should be rejected")
	}

	time.Sleep(30 * time.Millisecond)

	if !rl.Allow("client") {
		t.Error("request after window expiry should be allowed")
	}
}

func TestRateLimiterSweepRemovesExpiredWindows(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)
	defer rl.Stop()

	rl.Allow("gone-client")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rl.mu.Lock()
		empty := len(rl.windows) == 0
		rl.mu.Unlock()
		if empty {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expired window was never swept")
}
