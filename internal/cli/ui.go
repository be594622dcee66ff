package cli

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/xaibench/internal/ui"
	"github.com/YuminosukeSato/xaibench/pkg/log"
)

func newUICmd(a *app) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the interactive terminal workbench",
		Long: `Start the terminal workbench on a dataset. Pick a target, an algorithm
and a split type, train, then step through test examples and explain them.`,
		Example: `  xaibench ui -d CENSUS`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// Log records would tear the full-screen view apart.
			log.SetLevel(log.LevelError)
			s, cleanup, err := a.session(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := src.load(ctx, cmd, s); err != nil {
				return err
			}
			return ui.Run(ctx, s)
		},
	}
	src.register(cmd, false)
	return cmd
}
