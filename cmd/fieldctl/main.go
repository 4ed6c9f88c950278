// Command fieldctl runs the decision core offline: it reads a JSON
// observation from a file or stdin and prints the JSON result.
//
// Usage:
//
//	fieldctl yield -f field.json --model yield.yaml
//	fieldctl health < ndvi.json
//	fieldctl alerts -f conditions.json
//	fieldctl fit -f training.json -o yield.yaml
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/internal/logger"
	"github.com/liamcoop/fieldinsights/regression"
)

type options struct {
	input string
	model string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "fieldctl",
		Short:         "Run yield, crop health and alert estimates offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.input, "file", "f", "-", "JSON input file, - for stdin")

	modelFlag := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&opts.model, "model", "", "linear model YAML; rule-based when empty")
	}

	yieldCmd := &cobra.Command{
		Use:   "yield",
		Short: "Estimate crop yield for a field observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var obs insights.FieldObservation
			if err := readInput(cmd, opts.input, &obs); err != nil {
				return err
			}
			model, err := loadModel(opts.model)
			if err != nil {
				return err
			}
			res, err := insights.NewYieldEstimator(model, insights.WithLogger(logger.Component("fieldctl"))).
				Estimate(cmd.Context(), obs)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	modelFlag(yieldCmd)

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Classify crop health from NDVI and climate readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var obs insights.CropHealthObservation
			if err := readInput(cmd, opts.input, &obs); err != nil {
				return err
			}
			model, err := loadModel(opts.model)
			if err != nil {
				return err
			}
			res, err := insights.NewHealthClassifier(model, insights.WithLogger(logger.Component("fieldctl"))).
				Classify(cmd.Context(), obs)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	modelFlag(healthCmd)

	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Synthesize prioritized alerts for a conditions snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cond insights.Conditions
			if err := readInput(cmd, opts.input, &cond); err != nil {
				return err
			}
			if err := insights.ValidateConditions(cond); err != nil {
				return err
			}
			alerts := insights.SynthesizeAlerts(cond)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"alerts":               alerts,
				"total_alerts":         len(alerts),
				"high_priority_alerts": insights.CountUrgent(alerts),
			})
		},
	}

	root.AddCommand(yieldCmd, healthCmd, alertsCmd, newFitCmd(opts))
	return root
}

// trainingSet is the input of the fit command
type trainingSet struct {
	Name     string      `json:"name"`
	Features []string    `json:"features"`
	X        [][]float64 `json:"x"`
	Y        []float64   `json:"y"`
}

func newFitCmd(opts *options) *cobra.Command {
	var out string
	var version string

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a linear model by least squares and write it as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ts trainingSet
			if err := readInput(cmd, opts.input, &ts); err != nil {
				return err
			}
			m, err := regression.FitLinear(ts.X, ts.Y)
			if err != nil {
				return err
			}
			m.Name = ts.Name
			m.Version = version
			m.Features = ts.Features

			if out == "" {
				return writeJSON(cmd.OutOrStdout(), m.Describe())
			}
			if err := m.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (r2=%.4f)\n", out, m.RSquared)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the model YAML here; prints a summary when empty")
	cmd.Flags().StringVar(&version, "version", "1.0", "model version recorded in the YAML")
	return cmd
}

func readInput(cmd *cobra.Command, path string, dst any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

// loadModel returns nil for an empty path so the estimators use their rules
func loadModel(path string) (insights.Regressor, error) {
	if path == "" {
		return nil, nil
	}
	m, err := regression.LoadLinear(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "fieldctl:", err)
		os.Exit(1)
	}
}
