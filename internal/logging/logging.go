// Package logging initializes klog the way every Anvyl binary does it:
// textlogger to stderr at a verbosity derived from config.Config.LogLevel.
package logging

import (
	"flag"
	"os"
	"strconv"

	"k8s.io/klog/v2"
	"k8s.io/klog/v2/textlogger"
)

// Init configures klog's global logger at the given verbosity. Every
// Anvyl binary logs to stderr so stdout stays free for protocols that
// use it (the MCP server's STDIO transport, in particular).
func Init(verbosity int) {
	cfg := textlogger.NewConfig(
		textlogger.Output(os.Stderr),
		textlogger.Verbosity(verbosity),
	)
	klog.SetLoggerWithOptions(textlogger.NewLogger(cfg))

	fs := flag.NewFlagSet("anvyl", flag.ContinueOnError)
	klog.InitFlags(fs)
	_ = fs.Parse([]string{"--v", strconv.Itoa(verbosity)})
}
