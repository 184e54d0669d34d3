//go:build go1.24

package config_test

import "testing"

func chdirForTest(t *testing.T, dir string) {
	t.Chdir(dir)
}
