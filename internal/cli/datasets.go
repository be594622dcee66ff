package cli

import (
	"context"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/xaibench/dataset"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/workbench"
)

func newDatasetsCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the built-in datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "URL"})
			for _, src := range dataset.BuiltIns() {
				t.AppendRow(table.Row{src.ID, src.Name, src.URL})
			}
			t.Render()
			return nil
		},
	}
}

// sourceFlags selects a dataset and a target.
type sourceFlags struct {
	id     string
	url    string
	name   string
	target string
}

func (f *sourceFlags) register(cmd *cobra.Command, targetRequired bool) {
	cmd.Flags().StringVarP(&f.id, "dataset", "d", "", "built-in dataset id (see 'xaibench datasets')")
	cmd.Flags().StringVar(&f.url, "url", "", "CSV URL or local path of an external dataset")
	cmd.Flags().StringVar(&f.name, "name", "", "name of the external dataset")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "target column")
	if targetRequired {
		_ = cmd.MarkFlagRequired("target")
	}
	_ = cmd.RegisterFlagCompletionFunc("dataset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var ids []string
		for _, src := range dataset.BuiltIns() {
			ids = append(ids, string(src.ID))
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	})
}

// load fetches the dataset into s and prints the load message.
func (f *sourceFlags) load(ctx context.Context, cmd *cobra.Command, s *workbench.Session) error {
	var (
		msg string
		err error
	)
	switch {
	case f.url != "":
		msg, err = s.GetDatasetFromURL(ctx, f.name, f.url)
	case f.id != "":
		msg, err = s.GetDataset(ctx, strings.ToUpper(f.id))
	default:
		return errors.NewValidationError("dataset", "pass --dataset or --url", "")
	}
	if err != nil {
		return err
	}
	cmd.Println(msg)
	return nil
}
