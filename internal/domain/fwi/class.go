package fwi

// DangerClass is a coarse label for an FWI value.
type DangerClass string

// Danger classes, ordered from least to most severe.
const (
	ClassLow      DangerClass = "low"
	ClassModerate DangerClass = "moderate"
	ClassHigh     DangerClass = "high"
	ClassVeryHigh DangerClass = "very_high"
	ClassExtreme  DangerClass = "extreme"
)

// Classify maps an FWI value onto a danger class:
//
//	<5.2 low | <11.2 moderate | <21.3 high | <38 very high | >=38 extreme
func Classify(fwi float64) DangerClass {
	switch {
	case fwi < 5.2:
		return ClassLow
	case fwi < 11.2:
		return ClassModerate
	case fwi < 21.3:
		return ClassHigh
	case fwi < 38.0:
		return ClassVeryHigh
	default:
		return ClassExtreme
	}
}
