package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anvylhq/anvyl/internal/supervisor"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "start infra, mcp, and agent in order, waiting for each to become healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := newSupervisor()
		if err != nil {
			return err
		}
		if err := sup.StartAll(supervisor.StartAllOptions{}); err != nil {
			return &cliError{code: exitBackendUnavailable, err: err}
		}
		fmt.Println("anvyl: all services healthy")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "stop agent, mcp, and infra in reverse order",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := newSupervisor()
		if err != nil {
			return err
		}
		if err := sup.StopAll(); err != nil {
			return &cliError{code: exitGeneric, err: err}
		}
		fmt.Println("anvyl: all services stopped")
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "stop then start the full stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := newSupervisor()
		if err != nil {
			return err
		}
		if err := sup.StopAll(); err != nil {
			return &cliError{code: exitGeneric, err: err}
		}
		if err := sup.StartAll(supervisor.StartAllOptions{}); err != nil {
			return &cliError{code: exitBackendUnavailable, err: err}
		}
		fmt.Println("anvyl: all services healthy")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "report per-service status and aggregate health",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := newSupervisor()
		if err != nil {
			return err
		}
		statuses, allRunning, err := sup.StatusAll()
		if err != nil {
			return &cliError{code: exitGeneric, err: err}
		}
		for _, name := range []supervisor.Name{supervisor.Infra, supervisor.MCP, supervisor.Agent} {
			printStatus(name, statuses[name])
		}
		if !allRunning {
			return &cliError{code: exitServiceNotRunning, err: fmt.Errorf("not all services are running")}
		}
		return nil
	},
}

func printStatus(name supervisor.Name, st supervisor.Status) {
	if st.Running {
		fmt.Printf("%-6s running   pid=%d port=%d uptime=%ds\n", name, st.PID, st.Port, st.UptimeSeconds)
	} else {
		fmt.Printf("%-6s stopped   port=%d\n", name, st.Port)
	}
}

// serviceSubcommand builds the up|down|status|logs subtree shared by
// `anvyl infra`, `anvyl mcp`, and `anvyl agent`.
func serviceSubcommand(use string, name supervisor.Name) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: fmt.Sprintf("manage the %s service", use)}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: fmt.Sprintf("start %s", use),
		RunE: func(c *cobra.Command, args []string) error {
			sup, err := newSupervisor()
			if err != nil {
				return err
			}
			pid, err := sup.Start(name)
			if err != nil {
				return &cliError{code: exitBackendUnavailable, err: err}
			}
			fmt.Printf("%s: running, pid=%d\n", use, pid)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: fmt.Sprintf("stop %s", use),
		RunE: func(c *cobra.Command, args []string) error {
			sup, err := newSupervisor()
			if err != nil {
				return err
			}
			if err := sup.Stop(name); err != nil {
				return &cliError{code: exitGeneric, err: err}
			}
			fmt.Printf("%s: stopped\n", use)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: fmt.Sprintf("report %s status", use),
		RunE: func(c *cobra.Command, args []string) error {
			sup, err := newSupervisor()
			if err != nil {
				return err
			}
			st, err := sup.Status(name)
			if err != nil {
				return &cliError{code: exitGeneric, err: err}
			}
			printStatus(name, st)
			if !st.Running {
				return &cliError{code: exitServiceNotRunning, err: fmt.Errorf("%s is not running", use)}
			}
			return nil
		},
	})

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: fmt.Sprintf("show %s logs", use),
		RunE: func(c *cobra.Command, args []string) error {
			follow, _ := c.Flags().GetBool("follow")
			tail, _ := c.Flags().GetInt("tail")
			sup, err := newSupervisor()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if follow {
				var cancel context.CancelFunc
				ctx, cancel = signalContext()
				defer cancel()
			}
			opts := supervisor.LogOptions{Tail: tail, Follow: follow}
			if err := sup.Logs(ctx, name, opts, os.Stdout); err != nil {
				return &cliError{code: exitGeneric, err: err}
			}
			return nil
		},
	}
	logsCmd.Flags().Bool("follow", false, "stream appended log lines")
	logsCmd.Flags().Int("tail", 0, "show only the last N lines (0 = whole file)")
	cmd.AddCommand(logsCmd)

	return cmd
}

var infraCmd = serviceSubcommand("infra", supervisor.Infra)
var mcpCmd = serviceSubcommand("mcp", supervisor.MCP)
var agentCmd = serviceSubcommand("agent", supervisor.Agent)
