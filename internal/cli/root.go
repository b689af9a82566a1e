// Package cli implements the fwicalc command line tool.
package cli

import (
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/pkg/logger"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the fwicalc command tree.
func NewRootCommand() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:   "fwicalc",
		Short: "Canadian Fire Weather Index calculator",
		Long: `Computes the Canadian Forest Fire Weather Index System codes and
indices from noon weather observations, and exercises a running fire weather
service with synthetic load.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logger.Init(
				logger.WithLevel(logLevel),
				logger.WithFormat(logFormat),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(newCalcCommand(), newSeriesCommand(), newLoadCommand())
	return root
}

// calculatorFlags are shared by commands that evaluate days locally.
type calculatorFlags struct {
	vanWagner bool
	dcFloor   bool
}

func (f *calculatorFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.vanWagner, "van-wagner", false, "use the Van Wagner (1987) FFMC rain correction")
	cmd.Flags().BoolVar(&f.dcFloor, "dc-floor", false, "floor the Drought Code at zero")
}

func (f *calculatorFlags) calculator() *fwi.Calculator {
	var opts []fwi.Option
	if f.vanWagner {
		opts = append(opts, fwi.WithRainCorrection(fwi.RainCorrectionVanWagner))
	}
	if f.dcFloor {
		opts = append(opts, fwi.WithDroughtCodeFloor())
	}
	return fwi.NewCalculator(opts...)
}
