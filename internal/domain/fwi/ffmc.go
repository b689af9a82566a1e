package fwi

import "math"

const (
	ffmcRainThreshold = 0.5
	maxMoisture       = 250.0
)

// RainCorrection selects how rain wets fine fuels whose moisture content
// already exceeds 150%.
type RainCorrection int

const (
	// RainCorrectionUnified applies the base wetting formula at every
	// moisture content.
	RainCorrectionUnified RainCorrection = iota
	// RainCorrectionVanWagner adds 0.0015*(mo-150)^2*sqrt(rf) above 150%
	// as in Van Wagner (1987).
	RainCorrectionVanWagner
)

// String returns the config spelling of the correction.
func (r RainCorrection) String() string {
	switch r {
	case RainCorrectionVanWagner:
		return "van_wagner"
	default:
		return "unified"
	}
}

// ParseRainCorrection accepts "unified" (or empty) and "van_wagner".
func ParseRainCorrection(s string) (RainCorrection, bool) {
	switch s {
	case "", "unified":
		return RainCorrectionUnified, true
	case "van_wagner", "vanwagner":
		return RainCorrectionVanWagner, true
	default:
		return RainCorrectionUnified, false
	}
}

// UpdateFFMC returns today's Fine Fuel Moisture Code.
func UpdateFFMC(temp, rh, wind, rain, prevFFMC float64) (float64, error) {
	return updateFFMC(temp, rh, wind, rain, prevFFMC, RainCorrectionUnified)
}

func updateFFMC(temp, rh, wind, rain, prevFFMC float64, rc RainCorrection) (float64, error) {
	const op = "ffmc"
	if err := checkFinite(op, "temperature", temp); err != nil {
		return 0, err
	}
	if err := checkRange(op, "relative_humidity", rh, 0, 100); err != nil {
		return 0, err
	}
	if err := checkNonNegative(op, "wind_speed", wind); err != nil {
		return 0, err
	}
	if err := checkNonNegative(op, "rainfall", rain); err != nil {
		return 0, err
	}
	if err := checkRange(op, "prev_ffmc", prevFFMC, MinFFMC, MaxFFMC); err != nil {
		return 0, err
	}

	mo, err := moistureContent(op, prevFFMC)
	if err != nil {
		return 0, err
	}

	if rain > ffmcRainThreshold {
		rf := rain - ffmcRainThreshold
		if err := positive(op, "251-mo", 251.0-mo); err != nil {
			return 0, err
		}
		wet := 42.5 * rf * math.Exp(-100.0/(251.0-mo)) * (1 - math.Exp(-6.93/rf))
		if rc == RainCorrectionVanWagner && mo > 150.0 {
			wet += 0.0015 * (mo - 150.0) * (mo - 150.0) * math.Sqrt(rf)
		}
		mo += wet
		if mo > maxMoisture {
			mo = maxMoisture
		}
	}

	ed := 0.942*math.Pow(rh, 0.679) + 11*math.Exp((rh-100)/10) + 0.18*(21.1-temp)*(1-math.Exp(-0.115*rh))
	switch {
	case mo < ed:
		ew := 0.618*math.Pow(rh, 0.753) + 10*math.Exp((rh-100)/10) + 0.18*(21.1-temp)*(1-math.Exp(-0.115*rh))
		dry := (100.0 - rh) / 100.0
		kl := 0.424*(1.0-math.Pow(dry, 1.7)) + 0.0694*math.Sqrt(wind)*(1.0-math.Pow(dry, 8))
		kw := kl * 0.581 * math.Exp(0.0365*temp)
		mo = ew - (ew-mo)*math.Exp(-kw)
	case mo > ed:
		wet := rh / 100.0
		kl := 0.424*(1.0-math.Pow(wet, 1.7)) + 0.0694*math.Sqrt(wind)*(1.0-math.Pow(wet, 8))
		kw := kl * 0.581 * math.Exp(0.0365*temp)
		mo = ed + (mo-ed)*math.Exp(-kw)
	}

	if err := nonZero(op, "147.2+mo", 147.2+mo); err != nil {
		return 0, err
	}
	return clamp((59.5*(250.0-mo))/(147.2+mo), MinFFMC, MaxFFMC), nil
}

// moistureContent converts an FFMC value to fine fuel moisture content (%).
func moistureContent(op string, ffmc float64) (float64, error) {
	if err := nonZero(op, "59.5+ffmc", 59.5+ffmc); err != nil {
		return 0, err
	}
	return 147.2 * (101.0 - ffmc) / (59.5 + ffmc), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
