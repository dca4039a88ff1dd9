//go:build !linux && !windows

package supervisor

import (
	"os/exec"
	"sync"
	"syscall"

	"k8s.io/klog/v2"
)

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

var warnOnce sync.Once

// isAlive falls back to a bare zero-signal probe on non-Linux platforms,
// since there is no portable equivalent of /proc/<pid>/cmdline here. This
// gives a narrower guarantee than the Linux build: a recycled PID that
// happens to belong to another process will be misreported as running.
func isAlive(pid int, cmdlineTag string) bool {
	warnOnce.Do(func() {
		klog.Warningf("supervisor: pid liveness check on this platform cannot verify the process command line; a recycled pid may be misreported as running")
	})
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

func sendTerm(pid int) error { return syscall.Kill(pid, syscall.SIGTERM) }

func sendKill(pid int) error { return syscall.Kill(pid, syscall.SIGKILL) }
