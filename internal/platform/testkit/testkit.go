// Package testkit holds assertions shared by package tests. Worker tests
// lean on the polling helpers in eventually.go
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MustPanic fails unless fn panics; constructors use it to reject missing collaborators
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	if r := recovered(fn); r == nil {
		t.Fatalf("expected panic, got none")
	}
}

// MustNotPanic fails if fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	if r := recovered(fn); r != nil {
		t.Fatalf("unexpected panic: %v", r)
	}
}

func recovered(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}

// MustContain fails if needle is missing from haystack. Log captures can be
// long, so the full text goes to a file under the test's temp dir
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		return
	}
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + ".out"
	path := filepath.Join(t.TempDir(), name)
	_ = os.WriteFile(path, []byte(haystack), 0o600)
	t.Fatalf("output is missing %q\n\nfull output written to %s", needle, path)
}
