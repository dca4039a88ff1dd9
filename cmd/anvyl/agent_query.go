package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// localAgentURL builds the agent service's base URL from its configured
// port; unlike infra/mcp, no ANVYL_AGENT_URL override exists because the
// agent is only ever called locally by this CLI, never by another service.
func localAgentURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

func init() {
	agentCmd.AddCommand(agentQueryCmd)
}

var agentQueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "send a natural-language instruction to the agent service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hostID, _ := cmd.Flags().GetString("host-id")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := newAPIClient(localAgentURL(cfg.AgentPort))

		body := map[string]string{"query": args[0]}
		if hostID != "" {
			body["host_id"] = hostID
		}

		var result json.RawMessage
		if _, err := c.do("POST", "/query", body, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	agentQueryCmd.Flags().String("host-id", "", "target host id (pass-through only; routing is not yet implemented)")
}
