package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	if Version == "" || Commit == "" {
		t.Fatalf("version info not populated: %q %q", Version, Commit)
	}
	if s := String(); !strings.Contains(s, Version) || !strings.Contains(s, "commit: "+Commit) {
		t.Fatalf("unexpected version string %q", s)
	}
}
