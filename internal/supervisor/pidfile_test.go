package supervisor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "infra.pid")

	if err := writePID(path, 4242); err != nil {
		t.Fatalf("writePID: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "4242\n" {
		t.Fatalf("pid file content = %q, want %q", data, "4242\n")
	}

	pid, err := readPID(path)
	if err != nil {
		t.Fatalf("readPID: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("readPID = %d, want 4242", pid)
	}

	if err := removePID(path); err != nil {
		t.Fatalf("removePID: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("pid file still exists after removePID")
	}

	// Idempotent: removing an already-removed file is not an error.
	if err := removePID(path); err != nil {
		t.Fatalf("removePID on missing file: %v", err)
	}
}

func TestReadPIDMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "infra.pid")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readPID(path); err == nil {
		t.Fatalf("expected error reading malformed pid file")
	}
}

func TestReadPIDMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pid")
	if _, err := readPID(path); !os.IsNotExist(err) {
		t.Fatalf("expected IsNotExist error, got %v", err)
	}
}
