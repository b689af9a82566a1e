package cli

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/internal/loadtest"
	"github.com/spf13/cobra"
)

func newLoadCommand() *cobra.Command {
	cfg := loadtest.Config{
		BaseURL:   "http://localhost:9080",
		Stations:  100,
		Days:      30,
		Workers:   runtime.NumCPU() * 2,
		Timeout:   30 * time.Second,
		DrainWait: 2 * time.Minute,
		Seed:      1,
	}
	var (
		start   string
		overall time.Duration
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive a running service with synthetic observations",
		Long: `Seeds a set of synthetic stations on a running fire weather service, posts
consecutive daily observations for each, and checks that the service ends
with the same codes as a local replay of the same weather.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := model.ParseDate(start)
			if err != nil {
				return err
			}
			cfg.Start = day

			ctx, cancel := context.WithTimeout(cmd.Context(), overall)
			defer cancel()
			_, err = loadtest.Run(ctx, &cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.IntVar(&cfg.Stations, "stations", cfg.Stations, "number of synthetic stations")
	f.IntVar(&cfg.Days, "days", cfg.Days, "consecutive days per station")
	f.StringVar(&start, "start", "2024-04-01", "first day (YYYY-MM-DD)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.DrainWait, "drain-wait", cfg.DrainWait, "how long to wait for the service to apply every day")
	f.DurationVar(&overall, "deadline", 10*time.Minute, "overall run deadline")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "weather generator seed")
	f.StringVar(&cfg.OutputFile, "output", "", "write the generated observations to this JSON file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every failed observation")
	return cmd
}
