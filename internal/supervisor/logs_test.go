package supervisor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTailLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	content := "line1\nline2\nline3\nline4\nline5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := tailLines(path, 2)
	if err != nil {
		t.Fatalf("tailLines: %v", err)
	}
	want := "line4\nline5\n"
	if got != want {
		t.Fatalf("tailLines(2) = %q, want %q", got, want)
	}

	all, err := tailLines(path, 100)
	if err != nil {
		t.Fatalf("tailLines: %v", err)
	}
	if strings.TrimRight(all, "\n") != strings.TrimRight(content, "\n") {
		t.Fatalf("tailLines(100) = %q, want full content", all)
	}
}

func TestTailLinesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	got, err := tailLines(path, 10)
	if err != nil {
		t.Fatalf("tailLines on missing file: %v", err)
	}
	if got != "" {
		t.Fatalf("tailLines on missing file = %q, want empty", got)
	}
}
