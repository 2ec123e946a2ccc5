// Command lookup-probe submits concurrent color lookups to a running
// huematch service and verifies the answers.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/huematch/internal/probe"
)

const (
	defaultLookups   = 1000
	defaultWorkers   = 4
	defaultTimeout   = 5 * time.Second
	defaultRunBudget = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9090", "Base URL of the service")
		lookups     = flag.Int("lookups", defaultLookups, "Number of lookups to submit")
		workers     = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		palettePath = flag.String("palette", "", "Palette file the service uses")
		seed        = flag.Uint64("seed", 1, "Generator seed")
		outputFile  = flag.String("output", "", "Write every result to this JSON file")
		logFile     = flag.String("log", "", "Also write logs to this file")
		verbose     = flag.Bool("verbose", false, "Log every request")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	closer, err := probe.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunBudget)
	defer cancel()

	cfg := &probe.Config{
		BaseURL:     *baseURL,
		Lookups:     *lookups,
		Workers:     *workers,
		Timeout:     *timeout,
		PalettePath: *palettePath,
		Seed:        *seed,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}
	if _, err := probe.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("probe failed: " + err.Error() + "\n")
		closer.Close()
		os.Exit(1)
	}
}
