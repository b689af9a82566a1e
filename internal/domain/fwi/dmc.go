package fwi

import (
	"math"
	"time"
)

const dmcRainThreshold = 1.5

// dmcDayLength is the effective day length (hours) per calendar month.
var dmcDayLength = [12]float64{6.5, 7.5, 9.0, 12.8, 15.6, 16.4, 16.0, 14.0, 12.0, 10.8, 9.0, 7.0}

// UpdateDMC returns today's Duff Moisture Code. Sub-zero temperatures give
// a negative drying rate, which lowers the code; the result is floored at 0.
func UpdateDMC(temp, rh, rain float64, month time.Month, prevDMC float64) (float64, error) {
	const op = "dmc"
	if err := checkFinite(op, "temperature", temp); err != nil {
		return 0, err
	}
	if err := checkRange(op, "relative_humidity", rh, 0, 100); err != nil {
		return 0, err
	}
	if err := checkNonNegative(op, "rainfall", rain); err != nil {
		return 0, err
	}
	if err := checkMonth(op, int(month)); err != nil {
		return 0, err
	}
	if err := checkNonNegative(op, "prev_dmc", prevDMC); err != nil {
		return 0, err
	}

	rk := 1.894 * (temp + 1.1) * (100.0 - rh) * dmcDayLength[month-1] * 0.0001

	dr := prevDMC
	if rain > dmcRainThreshold {
		rw := 0.92*rain - 1.27
		smi := 800.0 * math.Exp(-prevDMC/43.43)
		if err := positive(op, "smi", smi); err != nil {
			return 0, err
		}
		arg := 1.0 + 3.937*rw/smi
		if err := positive(op, "1+3.937*rw/smi", arg); err != nil {
			return 0, err
		}
		dr = math.Max(0, prevDMC-43.43*math.Log(arg))
	}

	return math.Max(0, dr+rk), nil
}
