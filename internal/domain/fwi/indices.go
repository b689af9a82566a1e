package fwi

import "math"

const (
	buiHighBuildup = 80.0
)

// ISI returns the Initial Spread Index for today's FFMC and wind speed.
func ISI(ffmc, wind float64) (float64, error) {
	const op = "isi"
	if err := checkRange(op, "ffmc", ffmc, MinFFMC, MaxFFMC); err != nil {
		return 0, err
	}
	if err := checkNonNegative(op, "wind_speed", wind); err != nil {
		return 0, err
	}

	mo, err := moistureContent(op, ffmc)
	if err != nil {
		return 0, err
	}
	ff := 19.115 * math.Exp(-0.1386*mo) * (1.0 + math.Pow(mo, 5.31)/4.93e7)
	return ff * math.Exp(0.05039*wind), nil
}

// BUI returns the Buildup Index. When dmc <= 0.4*dc the DC-weighted
// harmonic blend is used, otherwise the DMC-dominated correction.
func BUI(dmc, dc float64) (float64, error) {
	const op = "bui"
	if err := checkNonNegative(op, "dmc", dmc); err != nil {
		return 0, err
	}
	if err := checkFinite(op, "dc", dc); err != nil {
		return 0, err
	}

	denom := dmc + 0.4*dc
	var bui float64
	if dmc <= 0.4*dc {
		if denom == 0 {
			// dmc == dc == 0; the blend tends to zero.
			return 0, nil
		}
		bui = 0.8 * dc * dmc / denom
	} else {
		if err := nonZero(op, "dmc+0.4*dc", denom); err != nil {
			return 0, err
		}
		bui = dmc - (1.0-0.8*dc/denom)*(0.92+math.Pow(0.0114*dmc, 1.7))
	}
	return math.Max(0, bui), nil
}

// FWI returns the Fire Weather Index from ISI and BUI.
func FWI(isi, bui float64) (float64, error) {
	const op = "fwi"
	if err := checkNonNegative(op, "isi", isi); err != nil {
		return 0, err
	}
	if err := checkNonNegative(op, "bui", bui); err != nil {
		return 0, err
	}

	var fD float64
	if bui <= buiHighBuildup {
		fD = 0.626*math.Pow(bui, 0.809) + 2.0
	} else {
		fD = 1000.0 / (25.0 + 108.64*math.Exp(-0.023*bui))
	}

	b := 0.1 * isi * fD
	if b <= 1.0 {
		return b, nil
	}
	if err := positive(op, "ln(b)", math.Log(b)); err != nil {
		return 0, err
	}
	return math.Exp(2.72 * math.Pow(0.434*math.Log(b), 0.647)), nil
}

// DSR returns the Daily Severity Rating, a seasonal-averaging transform of FWI.
func DSR(fwi float64) float64 {
	if fwi <= 0 {
		return 0
	}
	return 0.0272 * math.Pow(fwi, 1.77)
}
