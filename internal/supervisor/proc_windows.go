//go:build windows

package supervisor

import (
	"os"
	"os/exec"
	"sync"

	"k8s.io/klog/v2"
)

// detach is a no-op on Windows: there is no process-group/session
// primitive exposed here the way Setsid is on Unix. A spawned child
// already runs detached from the parent's console by default when there
// is no shared console inheritance requested.
func detach(cmd *exec.Cmd) {}

var warnOnce sync.Once

// isAlive on Windows relies on os.FindProcess opening a real handle to the
// pid (unlike on Unix, where FindProcess always succeeds trivially), so a
// failure to open it is treated as "not running". There is no portable
// command-line check here, so this carries the same narrower guarantee as
// the other non-Linux build: a recycled pid can still be misreported as
// running if Windows has already reused it for an unrelated process.
func isAlive(pid int, cmdlineTag string) bool {
	warnOnce.Do(func() {
		klog.Warningf("supervisor: pid liveness check on this platform cannot verify the process command line; a recycled pid may be misreported as running")
	})
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}

// sendTerm has no direct Windows equivalent of SIGTERM; os.Process.Kill
// is the closest available primitive and terminates immediately rather
// than gracefully, so the 10s grace window in Stop is effectively
// skipped on this platform.
func sendTerm(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func sendKill(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
