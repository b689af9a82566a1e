package fwi

import (
	"math"
	"time"
)

const dcRainThreshold = 2.8

// dcDayLengthFactor is the seasonal day-length adjustment per calendar month.
var dcDayLengthFactor = [12]float64{0.75, 1.0, 1.4, 2.0, 2.7, 3.2, 3.1, 2.7, 2.0, 1.5, 1.0, 0.75}

// UpdateDC returns today's Drought Code. The result is not floored: a cold
// day with no carried drought can yield a small negative value.
func UpdateDC(temp, rain float64, month time.Month, prevDC float64) (float64, error) {
	const op = "dc"
	if err := checkFinite(op, "temperature", temp); err != nil {
		return 0, err
	}
	if err := checkNonNegative(op, "rainfall", rain); err != nil {
		return 0, err
	}
	if err := checkMonth(op, int(month)); err != nil {
		return 0, err
	}
	if err := checkFinite(op, "prev_dc", prevDC); err != nil {
		return 0, err
	}

	pe := (0.36*(temp+2.8) + dcDayLengthFactor[month-1]) / 2

	dr := prevDC
	if rain > dcRainThreshold {
		rw := 0.83*rain - 1.27
		smi := 800.0 * math.Exp(-prevDC/400.0)
		if err := positive(op, "smi", smi); err != nil {
			return 0, err
		}
		arg := 1.0 + 3.937*rw/smi
		if err := positive(op, "1+3.937*rw/smi", arg); err != nil {
			return 0, err
		}
		dr = math.Max(0, prevDC-400.0*math.Log(arg))
	}

	return dr + pe, nil
}
