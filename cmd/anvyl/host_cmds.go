package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var hostCmd = &cobra.Command{Use: "host", Short: "inspect and register hosts via the Infrastructure API"}

func init() {
	hostCmd.AddCommand(hostListCmd, hostAddCmd, hostMetricsCmd)
}

func infraClient() (*apiClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAPIClient(cfg.InfraURL), nil
}

var hostListCmd = &cobra.Command{
	Use:   "list",
	Short: "list known hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := infraClient()
		if err != nil {
			return err
		}
		var hosts []json.RawMessage
		if _, err := c.do("GET", "/hosts", nil, &hosts); err != nil {
			return err
		}
		return printJSONLines(hosts)
	},
}

var hostAddCmd = &cobra.Command{
	Use:   "add",
	Short: "record a reference to a host (name, --ip required)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ip, _ := cmd.Flags().GetString("ip")
		if ip == "" {
			return &cliError{code: exitInvalidArgs, err: fmt.Errorf("--ip is required")}
		}
		c, err := infraClient()
		if err != nil {
			return err
		}
		body := map[string]string{"name": args[0], "ip": ip}
		var result json.RawMessage
		if _, err := c.do("POST", "/hosts", body, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	hostAddCmd.Flags().String("ip", "", "host IP address")
}

var hostMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "show a host's resource metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := infraClient()
		if err != nil {
			return err
		}
		var result json.RawMessage
		if _, err := c.do("GET", "/hosts/"+args[0]+"/metrics", nil, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

func printJSON(v json.RawMessage) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONLines(items []json.RawMessage) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}
