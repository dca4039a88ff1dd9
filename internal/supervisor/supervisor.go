// Package supervisor implements the Service Supervisor (§4.F): it starts,
// monitors, and stops the Infrastructure, Agent, and MCP services as
// detached OS child processes, persisting just enough state under
// $HOME/.anvyl for the next CLI invocation to answer status queries
// without a long-lived parent process of its own — the same
// process-external design the teacher's source system used for its own
// service management, preserved per the design notes rather than
// replaced with an in-memory daemon.
package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/anvylhq/anvyl/internal/config"
)

// Name identifies one of the three services the supervisor manages.
type Name string

const (
	Infra Name = "infra"
	MCP   Name = "mcp"
	Agent Name = "agent"
)

// startOrder is the order start_all brings services up in: infra must be
// reachable before mcp (which calls its API), and mcp before agent (which
// calls mcp).
var startOrder = []Name{Infra, MCP, Agent}

// Supervisor manages the three Anvyl services via PID files under
// cfg.StateDir. It holds no state of its own between calls beyond cfg —
// all liveness facts are re-derived from disk and /proc on every call.
type Supervisor struct {
	cfg *config.Config
}

// New builds a Supervisor rooted at cfg.StateDir, creating the pids/ and
// logs/ subdirectories if they don't already exist.
func New(cfg *config.Config) (*Supervisor, error) {
	if err := os.MkdirAll(cfg.PidsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create pids dir: %w", err)
	}
	if err := os.MkdirAll(cfg.LogsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	return &Supervisor{cfg: cfg}, nil
}

// serviceSpec is everything the supervisor needs to spawn and health-check
// one service.
type serviceSpec struct {
	binary     string
	healthURL  string
	port       int
	cmdlineTag string
}

func (s *Supervisor) spec(name Name) (serviceSpec, error) {
	switch name {
	case Infra:
		return serviceSpec{
			binary:     "anvyl-infra",
			healthURL:  fmt.Sprintf("http://localhost:%d/health", s.cfg.InfraPort),
			port:       s.cfg.InfraPort,
			cmdlineTag: "anvyl-infra",
		}, nil
	case MCP:
		return serviceSpec{
			binary:     "anvyl-mcp",
			healthURL:  fmt.Sprintf("http://localhost:%d/health", s.cfg.MCPPort),
			port:       s.cfg.MCPPort,
			cmdlineTag: "anvyl-mcp",
		}, nil
	case Agent:
		return serviceSpec{
			binary:     "anvyl-agent",
			healthURL:  fmt.Sprintf("http://localhost:%d/health", s.cfg.AgentPort),
			port:       s.cfg.AgentPort,
			cmdlineTag: "anvyl-agent",
		}, nil
	default:
		return serviceSpec{}, fmt.Errorf("unknown service %q", name)
	}
}

func (s *Supervisor) pidPath(name Name) string {
	return filepath.Join(s.cfg.PidsDir(), string(name)+".pid")
}

func (s *Supervisor) logPath(name Name) string {
	return filepath.Join(s.cfg.LogsDir(), string(name)+".log")
}

// resolveBinary finds the service executable on PATH. All three binaries
// are expected to be installed alongside anvyl, the way the source
// expected its managed services to already be on disk.
func resolveBinary(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("locate %s executable: %w", name, err)
	}
	return p, nil
}

const (
	stopGracePeriod  = 10 * time.Second
	healthDeadline   = 30 * time.Second
	healthPollPeriod = 200 * time.Millisecond
)
