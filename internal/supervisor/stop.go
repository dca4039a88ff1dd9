package supervisor

import (
	"time"
)

// Stop implements the §4.F stop operation: SIGTERM, wait up to 10s for
// exit, then SIGKILL. Idempotent — stopping an already-stopped service
// is a no-op that leaves the final state "not running".
func (s *Supervisor) Stop(name Name) error {
	spec, err := s.spec(name)
	if err != nil {
		return err
	}

	st, err := s.Status(name)
	if err != nil {
		return err
	}
	if !st.Running {
		return removePID(s.pidPath(name))
	}

	if err := sendTerm(st.PID); err != nil {
		// Already gone between Status() and here; nothing left to do.
		return removePID(s.pidPath(name))
	}

	deadline := time.Now().Add(stopGracePeriod)
	for time.Now().Before(deadline) {
		if !isAlive(st.PID, spec.cmdlineTag) {
			return removePID(s.pidPath(name))
		}
		time.Sleep(healthPollPeriod)
	}

	_ = sendKill(st.PID)
	return removePID(s.pidPath(name))
}

// StopAll stops services in reverse start order: agent, mcp, infra.
func (s *Supervisor) StopAll() error {
	var firstErr error
	for i := len(startOrder) - 1; i >= 0; i-- {
		if err := s.Stop(startOrder[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
