package supervisor

import (
	"fmt"
	"net/http"
	"time"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

// StartAllOptions reserved for future start_all flags; empty for now.
type StartAllOptions struct{}

// StartAll implements start_all: bring services up in order (infra, mcp,
// agent), waiting for each one's /health to return 200 within a 30s
// deadline before starting the next. On any failure, services started in
// this invocation are stopped and the error is surfaced.
func (s *Supervisor) StartAll(_ StartAllOptions) error {
	var started []Name

	for _, name := range startOrder {
		if _, err := s.Start(name); err != nil {
			s.rollback(started)
			return err
		}
		started = append(started, name)

		spec, _ := s.spec(name)
		if err := waitHealthy(spec.healthURL, healthDeadline); err != nil {
			s.rollback(started)
			return anvylerrors.Wrap(anvylerrors.SpawnError, fmt.Sprintf("%s did not become healthy within %s", name, healthDeadline), err)
		}
	}
	return nil
}

func (s *Supervisor) rollback(started []Name) {
	for i := len(started) - 1; i >= 0; i-- {
		_ = s.Stop(started[i])
	}
}

// Restart implements restart: stop then start.
func (s *Supervisor) Restart(name Name) (int, error) {
	if err := s.Stop(name); err != nil {
		return 0, err
	}
	return s.Start(name)
}

// waitHealthy polls url until it returns 200 OK or deadline elapses.
func waitHealthy(url string, deadline time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	end := time.Now().Add(deadline)
	var lastErr error
	for time.Now().Before(end) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("health check returned %d", resp.StatusCode)
		} else {
			lastErr = err
		}
		time.Sleep(healthPollPeriod)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("health check deadline exceeded")
	}
	return lastErr
}
