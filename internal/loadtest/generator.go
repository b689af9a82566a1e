package loadtest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/logger"
)

// Weather generation ranges.
const (
	tempSwing    = 6.0  // day-to-day °C spread around the seasonal mean
	minRH        = 15.0 // %
	rhSpread     = 70.0 // %
	maxWind      = 40.0 // km/h
	rainChance   = 0.3
	maxRain      = 12.0 // mm
	stationIDLen = 8
)

// seasonalMean is a rough noon temperature for each month of a boreal
// fire season.
var seasonalMean = [13]float64{0, -8, -5, 2, 10, 17, 22, 25, 23, 16, 8, 0, -6}

// generate builds Days consecutive observations for each of Stations
// stations. Station ids carry a run prefix so that repeated runs against one
// service do not collide.
func generate(ctx context.Context, cfg *Config, stats *Stats) [][]Observation {
	run := uuid.NewString()[:stationIDLen]
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	out := make([][]Observation, cfg.Stations)
	for s := range out {
		id := fmt.Sprintf("load-%s-%04d", run, s)
		days := make([]Observation, cfg.Days)
		for d := range days {
			days[d] = randomDay(rng, id, cfg.Start.AddDate(0, 0, d))
		}
		out[s] = days
	}

	stats.Generated = cfg.Stations * cfg.Days
	logger.Get().Info(ctx, "generated observations",
		logger.String("run", run),
		logger.Int("stations", cfg.Stations),
		logger.Int("days", cfg.Days))
	return out
}

func randomDay(rng *rand.Rand, stationID string, day time.Time) Observation {
	rain := 0.0
	if rng.Float64() < rainChance {
		rain = round1(rng.Float64() * maxRain)
	}
	return Observation{
		StationID: stationID,
		Date:      model.Day(day).Format(model.DateLayout),
		Temp:      round1(seasonalMean[day.Month()] + (rng.Float64()*2-1)*tempSwing),
		RH:        round1(minRH + rng.Float64()*rhSpread),
		Wind:      round1(rng.Float64() * maxWind),
		Rain:      rain,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
