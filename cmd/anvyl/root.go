package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anvylhq/anvyl/internal/config"
	"github.com/anvylhq/anvyl/internal/logging"
	"github.com/anvylhq/anvyl/internal/supervisor"
	"github.com/anvylhq/anvyl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "anvyl",
	Short:         "Anvyl: single-node Docker orchestration CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("version", false, "print version information and quit")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Println(version.Version)
			return errPrintedVersion
		}
		return nil
	}

	rootCmd.AddCommand(upCmd, downCmd, restartCmd, statusCmd)
	rootCmd.AddCommand(infraCmd, mcpCmd, agentCmd)
	rootCmd.AddCommand(hostCmd, containerCmd)
}

// errPrintedVersion short-circuits command execution after --version has
// already printed its line; Execute() treats it as a silent success.
var errPrintedVersion = errors.New("version printed")

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, &cliError{code: exitGeneric, err: err}
	}
	return cfg, nil
}

func newSupervisor() (*supervisor.Supervisor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.KlogVerbosity())
	sup, err := supervisor.New(cfg)
	if err != nil {
		return nil, &cliError{code: exitGeneric, err: err}
	}
	return sup, nil
}
