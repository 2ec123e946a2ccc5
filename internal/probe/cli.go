package probe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/huematch/pkg/logger"
)

const logFilePermission = 0o600

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging initialises the global logger. When logFile is set, output
// goes to both stdout and the file. The returned closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging initialised", logger.String("logFile", logFile))
	return closer, nil
}

// ShowHelp prints usage information for the probe tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`huematch lookup probe
=====================

Submits concurrent color lookups to a running huematch service and checks
that exact palette colors come back with their own names.

Usage:
  lookup-probe [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9090")
  -lookups int       Number of lookups to submit (default 1000)
  -workers int       Number of concurrent workers (default 4)
  -timeout duration  HTTP request timeout (default 5s)
  -palette string    Palette file the service uses (default: built-in palette)
  -seed uint         Generator seed (default 1)
  -output string     Write every result to this JSON file
  -log string        Also write logs to this file
  -verbose           Log every request
  -help              Show this help message

Examples:
  lookup-probe -lookups 5000 -workers 8
  lookup-probe -palette data/colors.bin -output results.json
`)
}
