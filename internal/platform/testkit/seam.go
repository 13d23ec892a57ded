package testkit

import (
	"sync"
	"testing"
)

// seams is held by every Serial test in the binary
var seams sync.Mutex

// Swap replaces *target for the rest of the test, typically a constructor
// var such as pg's newPool, and puts the original back on cleanup
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	t.Cleanup(func() { *target = orig })
	*target = replacement
}

// Serial keeps tests that Swap package vars from running alongside each other
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}
