package fwi_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
	. "github.com/smartystreets/goconvey/convey"
)

const scenarioTolerance = 0.1

func TestCalculate_ReferenceDay(t *testing.T) {
	Convey("Given a cold dry January day and carried codes 85/6/150", t, func() {
		w := fwi.Weather{Temperature: -4, RelativeHumidity: 40, WindSpeed: 2.6, Rainfall: 0, Month: time.January}
		prev := fwi.Codes{FFMC: 85, DMC: 6, DC: 150}

		Convey("When calculating the day", func() {
			r, err := fwi.Calculate(w, prev)

			Convey("Then every code and index matches the reference values", func() {
				So(err, ShouldBeNil)
				So(r.FFMC, ShouldAlmostEqual, 85.1, scenarioTolerance)
				So(r.DMC, ShouldAlmostEqual, 5.8, scenarioTolerance)
				So(r.DC, ShouldAlmostEqual, 150.2, scenarioTolerance)
				So(r.ISI, ShouldAlmostEqual, 2.44, scenarioTolerance)
				So(r.BUI, ShouldAlmostEqual, 10.6, scenarioTolerance)
				So(r.FWI, ShouldAlmostEqual, 2.46, scenarioTolerance)
			})

			Convey("And the danger rating is low", func() {
				So(r.Class, ShouldEqual, fwi.ClassLow)
				So(r.DSR, ShouldAlmostEqual, 0.1326, 0.001)
			})
		})

		Convey("When 5mm of rain fell", func() {
			wet := w
			wet.Rainfall = 5
			dry, err := fwi.Calculate(w, prev)
			So(err, ShouldBeNil)
			r, err := fwi.Calculate(wet, prev)

			Convey("Then fine fuels are wetter than on the dry day", func() {
				So(err, ShouldBeNil)
				So(r.FFMC, ShouldBeLessThan, dry.FFMC)
				So(r.FFMC, ShouldAlmostEqual, 38.21, 0.01)
			})

			Convey("And the duff and drought codes are reduced", func() {
				So(r.DMC, ShouldBeLessThan, dry.DMC)
				So(r.DC, ShouldBeLessThan, dry.DC)
			})
		})
	})
}

func TestUpdaters_Validation(t *testing.T) {
	Convey("Given the moisture code updaters", t, func() {
		Convey("When relative humidity is above 100", func() {
			_, err := fwi.UpdateFFMC(20, 101, 10, 0, 85)

			Convey("Then FFMC fails with an invalid input error", func() {
				So(errors.Is(err, fwi.ErrInvalidInput), ShouldBeTrue)
				var ie *fwi.InputError
				So(errors.As(err, &ie), ShouldBeTrue)
				So(ie.Field, ShouldEqual, "relative_humidity")
				So(ie.Op, ShouldEqual, "ffmc")
			})
		})

		Convey("When wind speed is negative", func() {
			_, err := fwi.UpdateFFMC(20, 40, -1, 0, 85)
			So(errors.Is(err, fwi.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When rainfall is negative", func() {
			_, err := fwi.UpdateDC(20, -0.1, time.July, 100)
			So(errors.Is(err, fwi.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the month is out of range", func() {
			_, dmcErr := fwi.UpdateDMC(20, 40, 0, 13, 6)
			_, dcErr := fwi.UpdateDC(20, 0, 0, 15)

			Convey("Then DMC and DC fail fast instead of indexing the tables", func() {
				So(errors.Is(dmcErr, fwi.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(dcErr, fwi.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a temperature is NaN", func() {
			_, err := fwi.UpdateDMC(math.NaN(), 40, 0, time.May, 6)
			So(errors.Is(err, fwi.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When yesterday's FFMC is outside [0, 101]", func() {
			_, err := fwi.UpdateFFMC(20, 40, 10, 0, 101.5)
			So(errors.Is(err, fwi.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When yesterday's DMC is negative", func() {
			_, err := fwi.UpdateDMC(20, 40, 0, time.May, -1)
			So(errors.Is(err, fwi.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestUpdaters_NumericDomain(t *testing.T) {
	Convey("Given a carried code so large that the moisture equivalent underflows", t, func() {
		Convey("When heavy rain falls on the DMC", func() {
			_, err := fwi.UpdateDMC(20, 50, 10, time.July, 40000)

			Convey("Then a numeric domain error is returned instead of NaN", func() {
				So(errors.Is(err, fwi.ErrNumericDomain), ShouldBeTrue)
				var de *fwi.DomainError
				So(errors.As(err, &de), ShouldBeTrue)
				So(de.Term, ShouldEqual, "smi")
			})
		})

		Convey("When heavy rain falls on the DC", func() {
			_, err := fwi.UpdateDC(20, 10, time.July, 400000)
			So(errors.Is(err, fwi.ErrNumericDomain), ShouldBeTrue)
		})

		Convey("When no rain falls", func() {
			dmc, err := fwi.UpdateDMC(20, 50, 0, time.July, 40000)

			Convey("Then the rain term is skipped and the update succeeds", func() {
				So(err, ShouldBeNil)
				So(dmc, ShouldBeGreaterThan, 40000)
			})
		})
	})
}

func TestUpdateDC_NegativeQuirk(t *testing.T) {
	Convey("Given a very cold day with no drought carried over", t, func() {
		Convey("When the default calculator updates DC", func() {
			dc, err := fwi.UpdateDC(-20, 0, time.January, 0)

			Convey("Then the result is negative, as the unfloored formula gives", func() {
				So(err, ShouldBeNil)
				So(dc, ShouldAlmostEqual, -2.721, 1e-9)
			})
		})

		Convey("When the calculator floors DC", func() {
			calc := fwi.NewCalculator(fwi.WithDroughtCodeFloor())
			w := fwi.Weather{Temperature: -20, RelativeHumidity: 50, WindSpeed: 5, Month: time.January}
			r, err := calc.Calculate(w, fwi.Codes{FFMC: 85, DMC: 0, DC: 0})

			Convey("Then DC is zero", func() {
				So(err, ShouldBeNil)
				So(r.DC, ShouldEqual, 0)
				So(calc.FloorsDroughtCode(), ShouldBeTrue)
			})
		})
	})
}

func TestCalculator_RainCorrection(t *testing.T) {
	Convey("Given saturated fine fuels (moisture content above 150%)", t, func() {
		w := fwi.Weather{Temperature: 15, RelativeHumidity: 60, WindSpeed: 10, Rainfall: 5, Month: time.June}
		prev := fwi.Codes{FFMC: 10, DMC: 10, DC: 50}

		Convey("When using the unified correction", func() {
			r, err := fwi.NewCalculator().Calculate(w, prev)
			So(err, ShouldBeNil)
			So(r.FFMC, ShouldAlmostEqual, 21.577, 0.001)
		})

		Convey("When using the Van Wagner correction", func() {
			calc := fwi.NewCalculator(fwi.WithRainCorrection(fwi.RainCorrectionVanWagner))
			r, err := calc.Calculate(w, prev)

			Convey("Then the extra term wets the fuel further", func() {
				So(err, ShouldBeNil)
				So(r.FFMC, ShouldAlmostEqual, 20.574, 0.001)
				So(calc.RainCorrection(), ShouldEqual, fwi.RainCorrectionVanWagner)
			})
		})
	})

	Convey("Given rain correction names from configuration", t, func() {
		rc, ok := fwi.ParseRainCorrection("van_wagner")
		So(ok, ShouldBeTrue)
		So(rc.String(), ShouldEqual, "van_wagner")

		rc, ok = fwi.ParseRainCorrection("")
		So(ok, ShouldBeTrue)
		So(rc, ShouldEqual, fwi.RainCorrectionUnified)

		_, ok = fwi.ParseRainCorrection("textbook")
		So(ok, ShouldBeFalse)
	})
}

func TestCalculator_Series(t *testing.T) {
	Convey("Given three April days starting from the default codes", t, func() {
		days := []fwi.Weather{
			{Temperature: 17, RelativeHumidity: 42, WindSpeed: 25, Rainfall: 0, Month: time.April},
			{Temperature: 20, RelativeHumidity: 21, WindSpeed: 25, Rainfall: 2.4, Month: time.April},
			{Temperature: 8.5, RelativeHumidity: 40, WindSpeed: 17, Rainfall: 0, Month: time.April},
		}
		calc := fwi.NewCalculator()

		Convey("When evaluating the series", func() {
			out, err := calc.Series(context.Background(), fwi.DefaultStartCodes, days)

			Convey("Then each day threads the previous day's codes", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 3)
				So(out[0].FFMC, ShouldAlmostEqual, 86.72, 0.01)
				So(out[0].FWI, ShouldAlmostEqual, 8.98, 0.01)
				So(out[1].FFMC, ShouldAlmostEqual, 72.77, 0.01)
				So(out[1].DC, ShouldAlmostEqual, 24.668, 0.001)
				So(out[2].DMC, ShouldAlmostEqual, 13.74, 0.01)
				So(out[2].FWI, ShouldAlmostEqual, 2.65, 0.01)
			})

			Convey("And matches evaluating day by day", func() {
				prev := fwi.DefaultStartCodes
				for i, w := range days {
					r, err := calc.Calculate(w, prev)
					So(err, ShouldBeNil)
					So(r, ShouldResemble, out[i])
					prev = r.Codes
				}
			})
		})

		Convey("When a day in the middle is invalid", func() {
			bad := append([]fwi.Weather(nil), days...)
			bad[1].Month = 0
			out, err := calc.Series(context.Background(), fwi.DefaultStartCodes, bad)

			Convey("Then the series stops with the completed prefix", func() {
				So(errors.Is(err, fwi.ErrInvalidInput), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "day 1")
				So(out, ShouldHaveLength, 1)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			out, err := calc.Series(ctx, fwi.DefaultStartCodes, days)

			Convey("Then nothing is evaluated", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(out, ShouldBeEmpty)
			})
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given FWI values across the danger scale", t, func() {
		So(fwi.Classify(0), ShouldEqual, fwi.ClassLow)
		So(fwi.Classify(5.19), ShouldEqual, fwi.ClassLow)
		So(fwi.Classify(5.2), ShouldEqual, fwi.ClassModerate)
		So(fwi.Classify(11.2), ShouldEqual, fwi.ClassHigh)
		So(fwi.Classify(21.3), ShouldEqual, fwi.ClassVeryHigh)
		So(fwi.Classify(38), ShouldEqual, fwi.ClassExtreme)
		So(fwi.Classify(120), ShouldEqual, fwi.ClassExtreme)
	})
}

func TestCodes_Validate(t *testing.T) {
	Convey("Given carried codes", t, func() {
		So(fwi.DefaultStartCodes.Validate(), ShouldBeNil)
		So(fwi.Codes{FFMC: 101, DMC: 0, DC: -3}.Validate(), ShouldBeNil)

		for _, c := range []fwi.Codes{
			{FFMC: 101.5, DMC: 6, DC: 15},
			{FFMC: 85, DMC: -1, DC: 15},
			{FFMC: 85, DMC: 6, DC: math.Inf(1)},
		} {
			So(errors.Is(c.Validate(), fwi.ErrInvalidInput), ShouldBeTrue)
		}
	})
}

func TestWeather_Validate(t *testing.T) {
	Convey("Given weather observations", t, func() {
		ok := fwi.Weather{Temperature: -5, RelativeHumidity: 100, WindSpeed: 0, Rainfall: 0, Month: time.December}
		So(ok.Validate(), ShouldBeNil)

		bad := []fwi.Weather{
			{Temperature: math.NaN(), RelativeHumidity: 50, Month: time.May},
			{Temperature: 20, RelativeHumidity: 101, Month: time.May},
			{Temperature: 20, RelativeHumidity: 50, WindSpeed: -1, Month: time.May},
			{Temperature: 20, RelativeHumidity: 50, Rainfall: -0.1, Month: time.May},
			{Temperature: 20, RelativeHumidity: 50, Month: 0},
		}
		for _, w := range bad {
			So(errors.Is(w.Validate(), fwi.ErrInvalidInput), ShouldBeTrue)
		}
	})
}
