package supervisor

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

const spawnLogTailLines = 20

// Start implements the §4.F start operation: if the service is already
// running, it is a no-op that returns its existing PID; otherwise it
// spawns a detached child, writes the PID file only after the process has
// actually started, and returns the new PID.
func (s *Supervisor) Start(name Name) (int, error) {
	spec, err := s.spec(name)
	if err != nil {
		return 0, err
	}

	if st, err := s.Status(name); err == nil && st.Running {
		return st.PID, nil
	}

	bin, err := resolveBinary(spec.binary)
	if err != nil {
		return 0, anvylerrors.Wrap(anvylerrors.SpawnError, fmt.Sprintf("locate %s", spec.binary), err)
	}

	logFile, err := os.OpenFile(s.logPath(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, anvylerrors.Wrap(anvylerrors.SpawnError, "open log file", err)
	}
	defer logFile.Close()

	devNull, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return 0, anvylerrors.Wrap(anvylerrors.SpawnError, "open /dev/null", err)
	}
	defer devNull.Close()

	cmd := exec.Command(bin)
	cmd.Stdin = devNull
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// Detach fully from this process's session so the child survives the
	// supervisor invocation exiting, per the §4.F detachment contract.
	detach(cmd)

	if err := cmd.Start(); err != nil {
		tail, _ := tailLines(s.logPath(name), spawnLogTailLines)
		return 0, anvylerrors.Wrap(anvylerrors.SpawnError, fmt.Sprintf("spawn %s failed; last log lines:\n%s", spec.binary, tail), err)
	}

	// Release the child from this process's process table entry; the
	// supervisor is not a long-lived parent and must not reap it.
	go func() { _ = cmd.Wait() }()

	if err := writePID(s.pidPath(name), cmd.Process.Pid); err != nil {
		return 0, anvylerrors.Wrap(anvylerrors.SpawnError, "write pid file", err)
	}
	return cmd.Process.Pid, nil
}
