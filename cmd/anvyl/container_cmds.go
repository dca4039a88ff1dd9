package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var containerCmd = &cobra.Command{Use: "container", Short: "manage containers via the Infrastructure API"}

func init() {
	containerCmd.AddCommand(containerListCmd, containerCreateCmd, containerStopCmd, containerLogsCmd, containerExecCmd)
}

var containerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := infraClient()
		if err != nil {
			return err
		}
		var containers []json.RawMessage
		if _, err := c.do("GET", "/containers", nil, &containers); err != nil {
			return err
		}
		return printJSONLines(containers)
	},
}

var containerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "create and start a container (--image required)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, _ := cmd.Flags().GetString("image")
		if image == "" {
			return &cliError{code: exitInvalidArgs, err: fmt.Errorf("--image is required")}
		}
		portFlags, _ := cmd.Flags().GetStringArray("port")
		envFlags, _ := cmd.Flags().GetStringArray("env")

		for _, p := range portFlags {
			if !strings.Contains(p, ":") {
				return &cliError{code: exitInvalidArgs, err: fmt.Errorf("--port: malformed entry %q, expected hostPort:containerPort", p)}
			}
		}
		env, err := parseKeyValuePairs(envFlags, "=")
		if err != nil {
			return &cliError{code: exitInvalidArgs, err: fmt.Errorf("--env: %w", err)}
		}

		c, err := infraClient()
		if err != nil {
			return err
		}
		body := map[string]any{
			"name":  args[0],
			"image": image,
		}
		if len(portFlags) > 0 {
			body["ports"] = portFlags
		}
		if len(env) > 0 {
			body["environment"] = env
		}
		var result json.RawMessage
		if _, err := c.do("POST", "/containers", body, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	containerCreateCmd.Flags().String("image", "", "image reference")
	containerCreateCmd.Flags().StringArray("port", nil, "host:container port mapping, repeatable")
	containerCreateCmd.Flags().StringArray("env", nil, "KEY=VALUE environment entry, repeatable")
}

// parseKeyValuePairs splits each "key<sep>value" entry into a map, the
// shape the Infrastructure API's environment field expects.
func parseKeyValuePairs(entries []string, sep string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		key, value, found := strings.Cut(e, sep)
		if !found {
			return nil, fmt.Errorf("malformed entry %q, expected key%svalue", e, sep)
		}
		out[key] = value
	}
	return out, nil
}

var containerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "stop a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := infraClient()
		if err != nil {
			return err
		}
		if _, err := c.do("POST", "/containers/"+args[0]+"/stop", map[string]any{}, nil); err != nil {
			return err
		}
		fmt.Println("stopped")
		return nil
	},
}

var containerLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "stream a container's logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url := fmt.Sprintf("%s/containers/%s/logs", cfg.InfraURL, args[0])
		if follow {
			url += "?follow=true"
		}

		ctx := context.Background()
		var cancel context.CancelFunc
		if follow {
			ctx, cancel = signalContext()
			defer cancel()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return &cliError{code: exitBackendUnavailable, err: err}
		}
		defer resp.Body.Close()
		_, err = io.Copy(os.Stdout, resp.Body)
		return err
	},
}

func init() {
	containerLogsCmd.Flags().Bool("follow", false, "stream appended log output")
}

var containerExecCmd = &cobra.Command{
	Use:   "exec",
	Short: "run a command inside a container",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := infraClient()
		if err != nil {
			return err
		}
		body := map[string]any{"command": args[1:]}
		var result json.RawMessage
		if _, err := c.do("POST", "/containers/"+args[0]+"/exec", body, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}
