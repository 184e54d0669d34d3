//go:build !go1.24

package config_test

import (
	"os"
	"testing"
)

// chdirForTest approximates testing.T.Chdir (added in Go 1.24) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Chdir back: %v", err)
		}
	})
}
