// Package config loads the ANVYL_* environment variables (and their
// flag/default overlay) shared by every service, bound through viper the
// way the teacher's cmd/root.go binds its own flags with
// viper.BindPFlags. Each service calls Load with its own *pflag.FlagSet
// so every binary keeps its own viper instance — these are separate OS
// processes per §4.F/§5 and never share in-memory state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of ANVYL_* settings. Each service reads only the
// fields it needs.
type Config struct {
	StateDir      string
	DBPath        string
	InfraPort     int
	MCPPort       int
	AgentPort     int
	InfraURL      string
	MCPURL        string
	ProviderURL   string
	Model         string
	ReconcileInterval time.Duration
	LogLevel      string

	MaxIterations  int
	RequestTimeout time.Duration
}

// Load reads ANVYL_* environment variables, overlaid by any flags already
// registered on fs (a service registers only the flags relevant to it),
// and returns a fully defaulted Config.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ANVYL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	defaultStateDir := filepath.Join(home, ".anvyl")

	v.SetDefault("state_dir", defaultStateDir)
	v.SetDefault("db_path", "")
	v.SetDefault("infra_port", 4200)
	v.SetDefault("mcp_port", 4201)
	v.SetDefault("agent_port", 4202)
	v.SetDefault("infra_url", "http://localhost:4200")
	v.SetDefault("mcp_url", "http://localhost:4201/mcp")
	v.SetDefault("model_provider_url", "http://localhost:11434/v1")
	v.SetDefault("model", "llama-3.2-3b-instruct")
	v.SetDefault("reconcile_interval", 15)
	v.SetDefault("log_level", "info")
	v.SetDefault("max_iterations", 8)
	v.SetDefault("request_timeout_seconds", 60)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	dbPath := v.GetString("db_path")
	stateDir := v.GetString("state_dir")
	if dbPath == "" {
		dbPath = filepath.Join(stateDir, "db.sqlite")
	}

	return &Config{
		StateDir:          stateDir,
		DBPath:            dbPath,
		InfraPort:         v.GetInt("infra_port"),
		MCPPort:           v.GetInt("mcp_port"),
		AgentPort:         v.GetInt("agent_port"),
		InfraURL:          v.GetString("infra_url"),
		MCPURL:            v.GetString("mcp_url"),
		ProviderURL:       v.GetString("model_provider_url"),
		Model:             v.GetString("model"),
		ReconcileInterval: time.Duration(v.GetInt("reconcile_interval")) * time.Second,
		LogLevel:          v.GetString("log_level"),
		MaxIterations:     v.GetInt("max_iterations"),
		RequestTimeout:    time.Duration(v.GetInt("request_timeout_seconds")) * time.Second,
	}, nil
}

// PidsDir is the pids/ subdirectory under StateDir.
func (c *Config) PidsDir() string { return filepath.Join(c.StateDir, "pids") }

// LogsDir is the logs/ subdirectory under StateDir.
func (c *Config) LogsDir() string { return filepath.Join(c.StateDir, "logs") }

// KlogVerbosity translates the info|debug|warn|error LogLevel into a klog
// -v verbosity integer; warn/error are always shown by klog regardless of
// verbosity, so they map to the same (lowest) level as info.
func (c *Config) KlogVerbosity() int {
	switch c.LogLevel {
	case "debug":
		return 3
	default:
		return 0
	}
}
