package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anvylhq/anvyl/internal/config"
)

func testSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		StateDir:  dir,
		InfraPort: 4200,
		MCPPort:   4201,
		AgentPort: 4202,
	}
	sup, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sup
}

// TestStatusStaleNonExistentPID covers the S5 scenario: a PID file
// naming a pid that was never assigned is reported not-running and the
// stale file is removed lazily.
func TestStatusStaleNonExistentPID(t *testing.T) {
	sup := testSupervisor(t)
	path := sup.pidPath(Infra)
	if err := writePID(path, 99999999); err != nil {
		t.Fatal(err)
	}

	st, err := sup.Status(Infra)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Fatalf("expected running=false for a nonexistent pid")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("stale pid file was not removed")
	}
}

func TestStatusNoPIDFile(t *testing.T) {
	sup := testSupervisor(t)
	st, err := sup.Status(MCP)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Fatalf("expected running=false with no pid file")
	}
	if st.Port != 4201 {
		t.Fatalf("Status.Port = %d, want 4201", st.Port)
	}
}

func TestStatusMalformedPIDFile(t *testing.T) {
	sup := testSupervisor(t)
	path := sup.pidPath(Agent)
	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := sup.Status(Agent)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Fatalf("expected running=false for a malformed pid file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("malformed pid file was not removed")
	}
}

// TestStopIdempotent covers invariant 4: stopping an already-stopped
// service twice converges to the same final state.
func TestStopIdempotent(t *testing.T) {
	sup := testSupervisor(t)
	if err := sup.Stop(Infra); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := sup.Stop(Infra); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	st, err := sup.Status(Infra)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Fatalf("expected not running after Stop")
	}
}

func TestNewCreatesStateDirs(t *testing.T) {
	sup := testSupervisor(t)
	for _, dir := range []string{sup.cfg.PidsDir(), sup.cfg.LogsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestLogPathsAreUnderLogsDir(t *testing.T) {
	sup := testSupervisor(t)
	got := sup.logPath(MCP)
	want := filepath.Join(sup.cfg.LogsDir(), "mcp.log")
	if got != want {
		t.Fatalf("logPath(MCP) = %q, want %q", got, want)
	}
}

func TestWaitHealthyTimesOutWhenUnreachable(t *testing.T) {
	err := waitHealthy("http://127.0.0.1:1/health", 300*time.Millisecond)
	if err == nil {
		t.Fatalf("expected waitHealthy to fail against an unreachable port")
	}
}
