package supervisor

import (
	"os"
	"time"
)

// Status is the §4.F status(service) result.
type Status struct {
	Running       bool
	PID           int
	UptimeSeconds int64
	Port          int
}

// Status implements the §4.F status operation and the liveness discipline:
// a service is running iff its PID file exists, the PID is alive, and its
// command line matches the expected binary. Any mismatch is treated as
// not running and the stale PID file is removed lazily.
func (s *Supervisor) Status(name Name) (Status, error) {
	spec, err := s.spec(name)
	if err != nil {
		return Status{}, err
	}

	path := s.pidPath(name)
	pid, err := readPID(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{Running: false, Port: spec.port}, nil
		}
		// Malformed PID file: treat the same as a stale/dead entry.
		_ = removePID(path)
		return Status{Running: false, Port: spec.port}, nil
	}

	if !isAlive(pid, spec.cmdlineTag) {
		_ = removePID(path)
		return Status{Running: false, Port: spec.port}, nil
	}

	uptime := int64(0)
	if info, err := os.Stat(path); err == nil {
		uptime = int64(time.Since(info.ModTime()).Seconds())
		if uptime < 0 {
			uptime = 0
		}
	}

	return Status{Running: true, PID: pid, UptimeSeconds: uptime, Port: spec.port}, nil
}

// StatusAll returns a per-service status map plus an aggregate "all
// running" boolean for status_all.
func (s *Supervisor) StatusAll() (map[Name]Status, bool, error) {
	out := make(map[Name]Status, len(startOrder))
	allRunning := true
	for _, n := range startOrder {
		st, err := s.Status(n)
		if err != nil {
			return nil, false, err
		}
		out[n] = st
		allRunning = allRunning && st.Running
	}
	return out, allRunning, nil
}
