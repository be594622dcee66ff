package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		src  sourceFlags
		rows int
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show a dataset's head, column kinds and target values",
		Example: `  xaibench inspect --dataset CENSUS --target income
  xaibench inspect --url ./data.csv --name local`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, cleanup, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := src.load(cmd.Context(), cmd, s); err != nil {
				return err
			}

			df := s.Dataset().Frame
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, df.Head(rows))

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.SetTitle(fmt.Sprintf("%d rows, %d columns", df.Len(), df.Width()))
			t.AppendHeader(table.Row{"Column", "Kind", "Unique", "Min", "Max", "Step"})
			for _, col := range df.Columns() {
				if col.IsNumeric() {
					lo, hi, step, err := s.SliderProperties(col.Name())
					if err != nil {
						return err
					}
					t.AppendRow(table.Row{col.Name(), col.Kind(), len(col.UniqueFloats()),
						fmt.Sprintf("%g", lo), fmt.Sprintf("%g", hi), fmt.Sprintf("%g", step)})
					continue
				}
				t.AppendRow(table.Row{col.Name(), col.Kind(), len(col.Unique()), "", "", ""})
			}
			t.Render()

			if src.target != "" {
				_, msg, err := s.ShowTarget(src.target)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, msg)
			}
			return nil
		},
	}
	src.register(cmd, false)
	cmd.Flags().IntVarP(&rows, "rows", "n", 5, "rows of the head to show")
	return cmd
}
