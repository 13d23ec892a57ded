package testkit

import (
	"testing"
	"time"
)

// Eventually polls cond every tick until it returns true or wait elapses, then fails the test
func Eventually(t *testing.T, wait, tick time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(wait)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v: %s", wait, msg)
		}
		time.Sleep(tick)
	}
}

// Never asserts cond stays false for the whole window
func Never(t *testing.T, window, tick time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if cond() {
			t.Fatalf("condition unexpectedly met: %s", msg)
		}
		time.Sleep(tick)
	}
}
