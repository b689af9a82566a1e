package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/spf13/cobra"
)

func newCalcCommand() *cobra.Command {
	var (
		w       fwi.Weather
		month   int
		prev    = fwi.DefaultStartCodes
		asJSON  bool
		calcOpt calculatorFlags
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute one day's codes and indices",
		Example: `  fwicalc calc --temp 17 --rh 42 --wind 25 --rain 0 --month 4
  fwicalc calc --temp 20 --rh 21 --wind 25 --rain 2.4 --month 4 --ffmc 86.7 --dmc 8.5 --dc 19 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w.Month = time.Month(month)
			res, err := calcOpt.calculator().Calculate(w, prev)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writeResult(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&w.Temperature, "temp", 0, "noon temperature (°C)")
	f.Float64Var(&w.RelativeHumidity, "rh", 0, "noon relative humidity (%)")
	f.Float64Var(&w.WindSpeed, "wind", 0, "noon wind speed (km/h)")
	f.Float64Var(&w.Rainfall, "rain", 0, "rain over the past 24h (mm)")
	f.IntVar(&month, "month", 0, "month of the observation (1-12)")
	f.Float64Var(&prev.FFMC, "ffmc", prev.FFMC, "yesterday's Fine Fuel Moisture Code")
	f.Float64Var(&prev.DMC, "dmc", prev.DMC, "yesterday's Duff Moisture Code")
	f.Float64Var(&prev.DC, "dc", prev.DC, "yesterday's Drought Code")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	calcOpt.register(cmd)
	for _, name := range []string{"temp", "rh", "wind", "month"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// writeResult prints the six values rounded to two decimals plus the
// severity rating and class.
func writeResult(out io.Writer, r fwi.Result) error { //nolint:gocritic // hugeParam: read-only copy
	_, err := fmt.Fprintf(out,
		"FFMC: %.2f\nDMC: %.2f\nDC: %.2f\nISI: %.2f\nBUI: %.2f\nFWI: %.2f\nDSR: %.2f\nClass: %s\n",
		r.FFMC, r.DMC, r.DC, r.ISI, r.BUI, r.FWI, r.DSR, r.Class)
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
