//go:build linux

package supervisor

import (
	"os"
	"testing"
)

// TestIsAliveRejectsCmdlineMismatch guards the §4.F liveness discipline:
// a live pid whose command line does not match the expected service must
// not be reported as running, since that pid may belong to an unrelated
// recycled process (here, this very test binary).
func TestIsAliveRejectsCmdlineMismatch(t *testing.T) {
	if isAlive(os.Getpid(), "anvyl-infra-binary-that-will-never-match") {
		t.Fatalf("isAlive matched an unrelated cmdline tag against the test binary")
	}
}

func TestIsAliveRejectsDeadPID(t *testing.T) {
	if isAlive(999999999, "anything") {
		t.Fatalf("isAlive reported a nonexistent pid as alive")
	}
}
