package loadtest

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/logger"
)

const (
	codeTolerance = 1e-6
	pollInterval  = 200 * time.Millisecond
)

// expectedCodes replays one station's days locally from start.
func expectedCodes(calc *fwi.Calculator, start fwi.Codes, days []Observation) (fwi.Codes, error) {
	codes := start
	for _, d := range days {
		day, err := model.ParseDate(d.Date)
		if err != nil {
			return fwi.Codes{}, err
		}
		res, err := calc.Calculate(fwi.Weather{
			Temperature:      d.Temp,
			RelativeHumidity: d.RH,
			WindSpeed:        d.Wind,
			Rainfall:         d.Rain,
			Month:            day.Month(),
		}, codes)
		if err != nil {
			return fwi.Codes{}, fmt.Errorf("%s %s: %w", d.StationID, d.Date, err)
		}
		codes = res.Codes
	}
	return codes, nil
}

// compare reports how got differs from the expected end state.
func compare(got StationView, want fwi.Codes, last Observation, count int) error {
	if got.LastDate != last.Date {
		return fmt.Errorf("last date %s, want %s", got.LastDate, last.Date)
	}
	if got.Observations != count {
		return fmt.Errorf("%d observations, want %d", got.Observations, count)
	}
	for _, c := range []struct {
		name      string
		got, want float64
	}{
		{"ffmc", got.Codes.FFMC, want.FFMC},
		{"dmc", got.Codes.DMC, want.DMC},
		{"dc", got.Codes.DC, want.DC},
	} {
		if math.Abs(c.got-c.want) > codeTolerance {
			return fmt.Errorf("%s %.6f, want %.6f", c.name, c.got, c.want)
		}
	}
	return nil
}

// verifyAll fetches every station until it has seen all of its days or the
// deadline passes, then compares it with the local replay.
func verifyAll(ctx context.Context, cfg *Config, client *HTTPClient, calc *fwi.Calculator, stations [][]Observation, stats *Stats) error {
	log := logger.Get().Named("loadtest")
	deadline := time.Now().Add(cfg.DrainWait)

	for _, days := range stations {
		if len(days) == 0 {
			continue
		}
		last := days[len(days)-1]
		want, err := expectedCodes(calc, fwi.DefaultStartCodes, days)
		if err != nil {
			return err
		}

		got, err := awaitStation(ctx, client, last.StationID, len(days), deadline)
		if err == nil {
			err = compare(got, want, last, len(days))
		}
		if err != nil {
			stats.Mismatched++
			log.Warn(ctx, "station mismatch", logger.String("station", last.StationID), logger.Error(err))
			continue
		}
		stats.Verified++
	}

	if stats.Mismatched > 0 {
		return fmt.Errorf("%d of %d stations did not match", stats.Mismatched, len(stations))
	}
	log.Info(ctx, "all stations verified", logger.Int("stations", stats.Verified))
	return nil
}

func awaitStation(ctx context.Context, client *HTTPClient, id string, count int, deadline time.Time) (StationView, error) {
	for {
		var st StationView
		status, err := client.Get(ctx, "/stations/"+url.PathEscape(id), &st)
		switch {
		case err != nil:
			return st, err
		case status != http.StatusOK:
			return st, fmt.Errorf("station lookup returned %d", status)
		case st.Observations >= count || time.Now().After(deadline):
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
