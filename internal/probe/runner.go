package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/huematch/internal/adapters/palette"
	"github.com/okian/huematch/pkg/logger"
)

const (
	directoryPermission     = 0o750
	workerChannelMultiplier = 2
	percentageMultiplier    = 100
)

// Run executes a complete probe and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("probe")

	log.Info(ctx, "starting lookup probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("lookups", cfg.Lookups),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.String("palette", cfg.PalettePath))

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	pal, err := openPalette(ctx, cfg.PalettePath)
	if err != nil {
		return stats, err
	}

	queries, err := generateQueries(ctx, cfg.Lookups, cfg.Seed, pal, stats)
	if err != nil {
		return stats, fmt.Errorf("lookup generation failed: %w", err)
	}

	results := submitLookups(ctx, cfg, queries, stats)
	verifyErr := verifyResults(ctx, pal, results, stats)

	if cfg.OutputFile != "" {
		if err := saveResults(ctx, cfg.OutputFile, results); err != nil {
			log.Warn(ctx, "failed to save results", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, verifyErr
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

func openPalette(ctx context.Context, path string) (*palette.Store, error) {
	if path == "" {
		return palette.Fallback(), nil
	}
	pal, err := palette.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open palette: %w", err)
	}
	return pal, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %d", resp.StatusCode)
	}
	return nil
}

// saveResults writes every result as a JSON array.
func saveResults(ctx context.Context, filename string, results []Result) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	logger.Get().Info(ctx, "results saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, agreement, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Successful > 0 {
		agreement = float64(stats.Agreed) / float64(stats.Successful) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("busy", stats.Busy),
		logger.Int("failed", stats.Failed),
		logger.Int("exactChecked", stats.ExactChecked),
		logger.Int("exactMissed", stats.ExactMissed),
		logger.Any("methods", stats.Methods),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("linearAgreement", agreement),
		logger.Float64("lookupsPerSecond", perSecond))
}
