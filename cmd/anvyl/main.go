// Command anvyl is the external command-line entrypoint (§6): it
// dispatches service lifecycle verbs to the supervisor and proxies
// host/container/query verbs to the Infrastructure and Agent HTTP APIs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"
)

// signalContext returns a context cancelled on SIGINT/SIGTERM, used by
// `logs --follow` so Ctrl+C stops the stream cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if err == errPrintedVersion {
			os.Exit(exitOK)
		}
		if ec, ok := err.(exitCoder); ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(ec.ExitCode())
		}
		klog.Errorf("anvyl: %v", err)
		os.Exit(1)
	}
}

// exitCoder lets any command error carry one of the §6 exit codes instead
// of the generic 1.
type exitCoder interface {
	error
	ExitCode() int
}

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) ExitCode() int { return e.code }

const (
	exitOK                = 0
	exitGeneric           = 1
	exitInvalidArgs       = 2
	exitServiceNotRunning = 3
	exitBackendUnavailable = 4
)
