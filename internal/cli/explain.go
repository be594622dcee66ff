package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/xaibench/explain"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
)

func newExplainCmd(a *app) *cobra.Command {
	var (
		src     sourceFlags
		models  modelFlags
		example int
		top     int
		plot    bool
		format  string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Train a model and explain it globally and for one test example",
		Example: `  xaibench explain -d CENSUS -t income -a DECISION_TREE --example 3
  xaibench explain -d IRIS -t class --example 0 --plot --format svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, cleanup, err := a.session(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := src.load(ctx, cmd, s); err != nil {
				return err
			}
			m, err := trainOne(ctx, cmd, s, &models, src.target)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			weights, err := s.InterpretModel(m)
			switch {
			case errors.Is(err, errors.ErrNotImplemented):
				log.GetLoggerWithName("cli").Warn("Global weights are not available", log.AlgorithmKey, m.ModelType.Algorithm.String())
			case err != nil:
				return err
			case asJSON:
				data, err := weights.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			default:
				weights.Render(out, top)
			}

			exp, err := s.ExplainInstance(m, example)
			if err != nil {
				return err
			}
			exp.Render(out)

			if !plot {
				return nil
			}
			path, err := explain.SaveExplanation(exp, a.cfg.ResultsDir, format)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved %s\n", path)
			if weights != nil {
				paths, err := explain.SaveWeights(weights, top, a.cfg.ResultsDir, format)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintf(out, "Saved %s\n", p)
				}
			}
			return nil
		},
	}
	src.register(cmd, true)
	models.register(cmd)
	cmd.Flags().IntVarP(&example, "example", "e", 0, "row of the test set to explain")
	cmd.Flags().IntVar(&top, "top", 20, "weights shown per class, 0 for all")
	cmd.Flags().BoolVar(&plot, "plot", false, "save bar charts under the results directory")
	cmd.Flags().StringVar(&format, "format", "png", "chart format (png|svg)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the global weights as JSON")
	return cmd
}
