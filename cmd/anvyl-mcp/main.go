// Command anvyl-mcp runs the MCP Server: the Model Context Protocol
// endpoint over either stdio or HTTP (see internal/mcpserver).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/anvylhq/anvyl/internal/config"
	"github.com/anvylhq/anvyl/internal/healthutil"
	"github.com/anvylhq/anvyl/internal/logging"
	"github.com/anvylhq/anvyl/internal/mcpserver"
	"github.com/anvylhq/anvyl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "anvyl-mcp",
	Short: "Anvyl MCP Server",
	RunE:  run,
}

func init() {
	rootCmd.Flags().Bool("version", false, "print version information and quit")
	rootCmd.Flags().Bool("stdio", false, "serve over stdio instead of HTTP")
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

	srv := mcpserver.New(cfg.InfraURL)

	if stdio, _ := cmd.Flags().GetBool("stdio"); stdio {
		return srv.ServeStdio()
	}

	health := healthutil.NewChecker(nil)
	health.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", srv.HandleHTTP)
	mux.HandleFunc("/health", health.Handler())
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MCPPort),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		klog.V(0).Infof("mcp server listening on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		klog.V(0).Infof("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			klog.Errorf("mcp server exited: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("anvyl-mcp: %v", err)
		os.Exit(1)
	}
}
