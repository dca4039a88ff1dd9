// Command anvyl-agent runs the Agent Service: it turns natural-language
// queries into MCP tool calls against an OpenAI-compatible chat model
// (see internal/agent).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/anvylhq/anvyl/internal/agent"
	"github.com/anvylhq/anvyl/internal/config"
	"github.com/anvylhq/anvyl/internal/logging"
	"github.com/anvylhq/anvyl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "anvyl-agent",
	Short: "Anvyl Agent Service",
	RunE:  run,
}

func init() {
	rootCmd.Flags().Bool("version", false, "print version information and quit")
}

func run(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetBool("version"); v {
		fmt.Println(version.Version)
		return nil
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.KlogVerbosity())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := agent.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize agent service: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		klog.V(0).Infof("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			klog.Errorf("agent service exited: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return svc.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("anvyl-agent: %v", err)
		os.Exit(1)
	}
}
