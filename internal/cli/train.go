package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/split"
	"github.com/YuminosukeSato/xaibench/workbench"
)

// modelFlags configures the model slots.
type modelFlags struct {
	algorithms []string
	models     int
	split      string
	cross      []string
	drop       []string
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.algorithms, "algorithm", "a", []string{pipeline.LogisticRegression.String()},
		"algorithm per model slot; the last one fills the remaining slots")
	cmd.Flags().IntVarP(&f.models, "models", "m", 0, "number of model slots (default: one per algorithm)")
	cmd.Flags().StringVarP(&f.split, "split", "s", split.Imbalanced.String(), "split type (IMBALANCED|BALANCED)")
	cmd.Flags().StringSliceVar(&f.cross, "cross", nil, "cross columns of a BALANCED split")
	cmd.Flags().StringSliceVar(&f.drop, "drop", nil, "features to remove before training")
	_ = cmd.RegisterFlagCompletionFunc("algorithm", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, alg := range pipeline.Algorithms() {
			names = append(names, alg.String())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// prepare selects the target and fills the slots from the flags.
func (f *modelFlags) prepare(cmd *cobra.Command, s *workbench.Session, target string) ([]*workbench.ModelSlot, error) {
	_, _, msg, err := s.SplitFeatureTarget(target)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, errors.Wrap(errors.ErrNoTarget, msg)
	}
	cmd.Println(msg)

	algorithms := make([]pipeline.Algorithm, len(f.algorithms))
	for i, name := range f.algorithms {
		if algorithms[i], err = pipeline.ParseAlgorithm(name); err != nil {
			return nil, err
		}
	}
	if len(algorithms) == 0 {
		return nil, errors.NewValidationError("algorithm", "at least one is required", f.algorithms)
	}
	if _, err := split.ParseType(f.split); err != nil {
		return nil, err
	}
	n := max(f.models, len(algorithms))

	slots, msg, err := s.FillEmptyModels(n)
	if err != nil {
		return nil, err
	}
	cmd.Println(msg)
	for i, m := range slots {
		m.SelectedAlgorithm = algorithms[min(i, len(algorithms)-1)]
		cmd.Println(s.ChangeCrossColumnsStatus(m, f.split))
		if m.CrossColumnsEnabled {
			m.CrossColumns = append([]string(nil), f.cross...)
		}
		if len(f.drop) > 0 {
			m.RemoveFeatures = append([]string(nil), f.drop...)
			msg, err := s.RemoveModelFeatures(m)
			if err != nil {
				return nil, err
			}
			cmd.Println(msg)
		}
	}
	return slots, nil
}

func newTrainCmd(a *app) *cobra.Command {
	var (
		src    sourceFlags
		models modelFlags
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train one or more models on a dataset",
		Example: `  xaibench train -d CENSUS -t income -a RANDOM_FOREST,XGB
  xaibench train -d CENSUS -t income -s BALANCED --cross gender,ethnicity
  xaibench train -d WINE_QUALITY -t quality -a LINEAR_REGRESSION`,
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
			slots, err := models.prepare(cmd, s, src.target)
			if err != nil {
				return err
			}
			msgs, err := s.TrainAll(ctx)
			if err != nil {
				return err
			}
			printEvaluations(cmd, slots, msgs)
			return nil
		},
	}
	src.register(cmd, true)
	models.register(cmd)
	return cmd
}

func printEvaluations(cmd *cobra.Command, slots []*workbench.ModelSlot, msgs []string) {
	out := cmd.OutOrStdout()
	for i, m := range slots {
		fmt.Fprintln(out, msgs[i])
		fmt.Fprintf(out, "%s (%s, %s split)\n", m.Name, m.ModelType, m.Split.Type)
		if m.RunID != "" {
			fmt.Fprintf(out, "run %s\n", m.RunID)
		}
		m.Evaluation.Render(out)
	}
}

// trainOne trains the first slot prepared from the flags.
func trainOne(ctx context.Context, cmd *cobra.Command, s *workbench.Session, f *modelFlags, target string) (*workbench.ModelSlot, error) {
	slots, err := f.prepare(cmd, s, target)
	if err != nil {
		return nil, err
	}
	msg, err := s.FillModel(ctx, slots[0])
	if err != nil {
		return nil, err
	}
	cmd.Println(msg)
	return slots[0], nil
}
