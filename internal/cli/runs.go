package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List recorded training runs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := a.openRegistry(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)

			if len(args) == 1 {
				run, err := reg.Get(ctx, args[0])
				if err != nil {
					return err
				}
				t.SetTitle("Run " + run.ID)
				t.AppendRows([]table.Row{
					{"created", run.CreatedAt.Local().Format("2006-01-02 15:04:05")},
					{"dataset", run.Dataset},
					{"target", run.Target},
					{"model", run.Model},
					{"algorithm", run.Algorithm},
					{"problem type", run.ProblemType},
					{"split", run.Split},
				})
				t.AppendSeparator()
				for _, k := range sortedKeys(run.Metrics) {
					t.AppendRow(table.Row{k, fmt.Sprintf("%.4f", run.Metrics[k])})
				}
				t.Render()
				return nil
			}

			runs, err := reg.List(ctx, limit)
			if err != nil {
				return err
			}
			t.AppendHeader(table.Row{"ID", "Created", "Dataset", "Target", "Algorithm", "Split", "Metrics"})
			for _, run := range runs {
				var metrics []string
				for _, k := range sortedKeys(run.Metrics) {
					if strings.HasSuffix(k, "_samples") {
						continue
					}
					metrics = append(metrics, fmt.Sprintf("%s=%.3f", k, run.Metrics[k]))
				}
				t.AppendRow(table.Row{shortID(run.ID), run.CreatedAt.Local().Format("2006-01-02 15:04"),
					run.Dataset, run.Target, run.Algorithm, run.Split, strings.Join(metrics, " ")})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list, 0 for all")
	return cmd
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
