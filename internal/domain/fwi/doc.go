// Package fwi computes the Canadian Forest Fire Weather Index System for a
// single day and location.
//
// # Dependency graph
//
// Three moisture codes are carried from day to day and updated from the
// day's weather:
//
//	FFMC  fine fuel moisture   temperature, humidity, wind, rain
//	DMC   duff moisture        temperature, humidity, rain, month
//	DC    drought              temperature, rain, month
//
// Three behaviour indices are derived from today's codes:
//
//	ISI = f(FFMC, wind)
//	BUI = f(DMC, DC)
//	FWI = f(ISI, BUI)
//
// Each location's series is strictly sequential: day N needs the clamped
// codes produced on day N-1. Separate locations are independent.
//
// # Known quirks
//
// The FFMC rain correction applies the same wetting formula whether or not
// the moisture content exceeds 150; see [RainCorrectionVanWagner] for the
// two-branch form. The Drought Code is never floored at zero unless
// [WithDroughtCodeFloor] is set, so a very cold dry day after a wet spell can
// produce a small negative DC.
//
// All functions are pure and safe for concurrent use. Invalid inputs fail
// with an error wrapping [ErrInvalidInput]; arguments that would leave the
// domain of a logarithm, fractional power or division fail with an error
// wrapping [ErrNumericDomain].
package fwi
