package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/pkg/logger"
)

const directoryPermission = 0o750

// Run executes a complete load run.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadtest")
	log.Info(ctx, "starting fire weather load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("stations", cfg.Stations),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers),
		logger.String("start", cfg.Start.Format(time.DateOnly)))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	calc, err := serviceCalculator(ctx, client)
	if err != nil {
		return stats, fmt.Errorf("reading service settings failed: %w", err)
	}

	stations := generate(ctx, cfg, stats)
	if err := seedStations(ctx, client, stations); err != nil {
		return stats, fmt.Errorf("seeding stations failed: %w", err)
	}

	submitAll(ctx, cfg, client, stations, stats)

	verifyErr := verifyAll(ctx, cfg, client, calc, stations, stats)

	if cfg.OutputFile != "" {
		if err := saveObservations(cfg.OutputFile, stations); err != nil {
			log.Warn(ctx, "failed to save observations", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("verification failed: %w", verifyErr)
	}
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, err := client.Get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check returned %d", status)
	}
	return nil
}

// serviceCalculator mirrors the service's calculator settings so the local
// replay matches.
func serviceCalculator(ctx context.Context, client *HTTPClient) (*fwi.Calculator, error) {
	var stats struct {
		Started          bool   `json:"started"`
		RainCorrection   string `json:"rainCorrection"`
		DroughtCodeFloor bool   `json:"droughtCodeFloor"`
	}
	if _, err := client.Get(ctx, "/stats", &stats); err != nil {
		return nil, err
	}
	if !stats.Started {
		return nil, fmt.Errorf("service is not accepting observations")
	}
	rc, ok := fwi.ParseRainCorrection(stats.RainCorrection)
	if !ok {
		return nil, fmt.Errorf("unknown rain correction %q", stats.RainCorrection)
	}
	opts := []fwi.Option{fwi.WithRainCorrection(rc)}
	if stats.DroughtCodeFloor {
		opts = append(opts, fwi.WithDroughtCodeFloor())
	}
	return fwi.NewCalculator(opts...), nil
}

// seedStations pins every station to the default start codes with no
// date, so the run does not depend on the service's configured start codes.
func seedStations(ctx context.Context, client *HTTPClient, stations [][]Observation) error {
	seed := fwi.DefaultStartCodes
	for _, days := range stations {
		if len(days) == 0 {
			continue
		}
		status, err := client.Put(ctx, "/stations/"+url.PathEscape(days[0].StationID), seed, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("seeding %s returned %d", days[0].StationID, status)
		}
	}
	return nil
}

func saveObservations(filename string, stations [][]Observation) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(stations, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o600)
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("retried", stats.Retried),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("observationsPerSecond", perSecond))
}
