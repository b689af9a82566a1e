package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/spf13/cobra"
)

const seriesColumns = 5

func newSeriesCommand() *cobra.Command {
	var (
		start   = fwi.DefaultStartCodes
		asJSON  bool
		calcOpt calculatorFlags
	)

	cmd := &cobra.Command{
		Use:   "series [file]",
		Short: "Compute consecutive days from CSV weather",
		Long: `Reads one day per line as "temp,rh,wind,rain,month" from file, or from
standard input when no file is given, and carries the codes from each day
into the next. A leading header line is skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			days, err := readWeather(in)
			if err != nil {
				return err
			}
			out, err := calcOpt.calculator().Series(cmd.Context(), start, days)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return writeTable(cmd.OutOrStdout(), out)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&start.FFMC, "ffmc", start.FFMC, "starting Fine Fuel Moisture Code")
	f.Float64Var(&start.DMC, "dmc", start.DMC, "starting Duff Moisture Code")
	f.Float64Var(&start.DC, "dc", start.DC, "starting Drought Code")
	f.BoolVar(&asJSON, "json", false, "print the results as JSON")
	calcOpt.register(cmd)
	return cmd
}

// readWeather parses CSV weather rows.
func readWeather(in io.Reader) ([]fwi.Weather, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = seriesColumns
	r.TrimLeadingSpace = true
	r.Comment = '#'

	var days []fwi.Weather
	for first := true; ; first = false {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if first && isHeader(rec) {
			continue
		}
		w, err := parseWeather(rec)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		days = append(days, w)
	}
	if len(days) == 0 {
		return nil, errors.New("no weather rows")
	}
	return days, nil
}

func isHeader(rec []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	return err != nil
}

func parseWeather(rec []string) (fwi.Weather, error) {
	var v [seriesColumns - 1]float64
	for i := range v {
		f, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return fwi.Weather{}, err
		}
		v[i] = f
	}
	month, err := strconv.Atoi(strings.TrimSpace(rec[seriesColumns-1]))
	if err != nil {
		return fwi.Weather{}, err
	}
	return fwi.Weather{
		Temperature:      v[0],
		RelativeHumidity: v[1],
		WindSpeed:        v[2],
		Rainfall:         v[3],
		Month:            time.Month(month),
	}, nil
}

func writeTable(out io.Writer, results []fwi.Result) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DAY\tFFMC\tDMC\tDC\tISI\tBUI\tFWI\tDSR\tCLASS\t")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			i+1, r.FFMC, r.DMC, r.DC, r.ISI, r.BUI, r.FWI, r.DSR, r.Class)
	}
	return tw.Flush()
}
