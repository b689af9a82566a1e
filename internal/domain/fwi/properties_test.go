package fwi

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomWeather draws observations across the whole valid input space.
func randomWeather(rng *rand.Rand) Weather {
	return Weather{
		Temperature:      rng.Float64()*70 - 30,
		RelativeHumidity: rng.Float64() * 100,
		WindSpeed:        rng.Float64() * 80,
		Rainfall:         rng.ExpFloat64() * 4,
		Month:            time.Month(rng.Intn(12) + 1),
	}
}

func TestUpdateFFMC_StaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic fixture
	for i := 0; i < 5000; i++ {
		w := randomWeather(rng)
		prev := rng.Float64() * MaxFFMC
		got, err := UpdateFFMC(w.Temperature, w.RelativeHumidity, w.WindSpeed, w.Rainfall, prev)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, MinFFMC)
		assert.LessOrEqual(t, got, MaxFFMC)
	}

	for _, prev := range []float64{MinFFMC, MaxFFMC} {
		got, err := UpdateFFMC(30, 5, 40, 60, prev)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(got))
	}
}

func TestOutputs_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(11)) //nolint:gosec // deterministic fixture
	for i := 0; i < 5000; i++ {
		w := randomWeather(rng)
		prevDMC := rng.Float64() * 200
		prevDC := rng.Float64() * 800

		dmc, err := UpdateDMC(w.Temperature, w.RelativeHumidity, w.Rainfall, w.Month, prevDMC)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, dmc, 0.0)

		dc, err := UpdateDC(w.Temperature, w.Rainfall, w.Month, prevDC)
		require.NoError(t, err)

		bui, err := BUI(dmc, math.Max(0, dc))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bui, 0.0)

		isi, err := ISI(rng.Float64()*MaxFFMC, w.WindSpeed)
		require.NoError(t, err)
		f, err := FWI(isi, bui)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, f, 0.0)
	}
}

func TestUpdateFFMC_EquilibriumIsFixedPoint(t *testing.T) {
	temp, rh := 21.0, 45.0
	ed := 0.942*math.Pow(rh, 0.679) + 11*math.Exp((rh-100)/10) + 0.18*(21.1-temp)*(1-math.Exp(-0.115*rh))
	prev := 59.5 * (250 - ed) / (147.2 + ed)

	got, err := UpdateFFMC(temp, rh, 12, 0, prev)
	require.NoError(t, err)
	assert.InDelta(t, prev, got, 1e-9)
}

func TestUpdateFFMC_RainThresholdIsStrict(t *testing.T) {
	dry, err := UpdateFFMC(20, 50, 10, 0, 85)
	require.NoError(t, err)
	atThreshold, err := UpdateFFMC(20, 50, 10, 0.5, 85)
	require.NoError(t, err)
	above, err := UpdateFFMC(20, 50, 10, 0.6, 85)
	require.NoError(t, err)

	assert.Equal(t, dry, atThreshold)
	assert.Less(t, above, dry)
}

func TestUpdateDMC_RainThresholdIsStrict(t *testing.T) {
	dry, err := UpdateDMC(20, 50, 0, time.July, 20)
	require.NoError(t, err)
	atThreshold, err := UpdateDMC(20, 50, 1.5, time.July, 20)
	require.NoError(t, err)
	above, err := UpdateDMC(20, 50, 1.6, time.July, 20)
	require.NoError(t, err)

	assert.Equal(t, dry, atThreshold)
	assert.Less(t, above, dry)
}

func TestUpdateDC_RainThresholdIsStrict(t *testing.T) {
	dry, err := UpdateDC(20, 0, time.July, 150)
	require.NoError(t, err)
	atThreshold, err := UpdateDC(20, 2.8, time.July, 150)
	require.NoError(t, err)
	above, err := UpdateDC(20, 2.9, time.July, 150)
	require.NoError(t, err)

	assert.Equal(t, dry, atThreshold)
	assert.Less(t, above, dry)
}

func TestISI_IncreasesWithWind(t *testing.T) {
	for _, ffmc := range []float64{20, 60, 85, 92, 101} {
		prev := -1.0
		for wind := 0.0; wind <= 100; wind += 2.5 {
			got, err := ISI(ffmc, wind)
			require.NoError(t, err)
			assert.Greater(t, got, prev, "ffmc=%g wind=%g", ffmc, wind)
			prev = got
		}
	}
}

func TestBUI_BranchContinuity(t *testing.T) {
	for _, dc := range []float64{10, 100, 250, 600} {
		edge := 0.4 * dc
		atEdge, err := BUI(edge, dc)
		require.NoError(t, err)
		justAbove, err := BUI(math.Nextafter(edge, math.Inf(1)), dc)
		require.NoError(t, err)
		assert.InDelta(t, atEdge, justAbove, 1e-6, "dc=%g", dc)
	}

	zero, err := BUI(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)
}

func TestFWI_BranchContinuity(t *testing.T) {
	// b = 0.1 * isi * fD with bui = 0 gives fD = 2, so isi = 5 yields b = 1.
	got, err := FWI(5, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)

	above, err := FWI(5+1e-9, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, above, 1e-3)

	// The two fD forms meet close to bui = 80.
	low, err := FWI(10, 80)
	require.NoError(t, err)
	high, err := FWI(10, 80.0001)
	require.NoError(t, err)
	assert.InDelta(t, low, high, 0.2)
}

func TestIndices_RejectInvalid(t *testing.T) {
	_, err := ISI(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ISI(85, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = BUI(-0.1, 20)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = FWI(-1, 20)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = FWI(3, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBUI_ZeroDenominator(t *testing.T) {
	// A negative DC (unfloored quirk) can cancel the denominator.
	_, err := BUI(0.4, -1)
	assert.ErrorIs(t, err, ErrNumericDomain)
}

func TestDSR(t *testing.T) {
	assert.Equal(t, 0.0, DSR(0))
	assert.Equal(t, 0.0, DSR(-3))
	assert.InDelta(t, 0.0272, DSR(1), 1e-12)
}
