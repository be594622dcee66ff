// Package cli implements the xaibench command line.
package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/xaibench/dataset"
	"github.com/YuminosukeSato/xaibench/explain"
	"github.com/YuminosukeSato/xaibench/internal/config"
	"github.com/YuminosukeSato/xaibench/internal/registry"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
	"github.com/YuminosukeSato/xaibench/workbench"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries the state shared by all subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "xaibench",
		Short: "Train and explain tabular machine-learning models",
		Long: `xaibench loads a tabular dataset, trains classification or regression
pipelines on a chosen target and explains them globally (feature weights)
and locally (LIME).`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			format := cfg.LogFormat
			if format == "json" && isTerminal(cmd.ErrOrStderr()) && !cmd.Flags().Changed("log-format") {
				format = "console"
			}
			return log.Setup(cmd.ErrOrStderr(), cfg.LogLevel, format)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.FileName+")")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (json|console)")
	pf.String("cache-dir", "", "dataset download cache")
	pf.String("registry-path", "", "SQLite file recording training runs")
	pf.String("results-dir", "", "directory for explanation charts")
	pf.Int64("random-state", 0, "seed for splits and estimators")
	pf.Float64("test-size", 0, "test fraction of IMBALANCED splits")
	pf.Int("lime-samples", 0, "perturbed samples per LIME explanation")
	pf.Int("min-per-group", 0, "test rows per group of BALANCED splits")
	pf.Int("max-per-group", 0, "train rows per group of BALANCED splits, 0 for no cap")
	pf.String("scaling", "", "scaler of numeric features (standard|minmax)")

	root.AddCommand(
		newDatasetsCmd(a),
		newInspectCmd(a),
		newTrainCmd(a),
		newExplainCmd(a),
		newRunsCmd(a),
		newUICmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// session builds a workbench session wired to the configuration. The
// returned cleanup closes the registry.
func (a *app) session(ctx context.Context, record bool) (*workbench.Session, func(), error) {
	logger := log.GetLoggerWithName("cli")
	opts := []workbench.Option{
		workbench.WithLoader(dataset.NewLoader(dataset.WithCacheDir(a.cfg.CacheDir))),
		workbench.WithTrainOptions(a.cfg.TrainOptions()...),
		workbench.WithLimeOptions(
			explain.WithNumSamples(a.cfg.LimeSamples),
			explain.WithLimeRandomState(uint64(a.cfg.RandomState)),
		),
	}
	cleanup := func() {}
	if record {
		reg, err := a.openRegistry(ctx)
		if err != nil {
			logger.Warn("Training runs will not be recorded", log.ErrAttrKey, err)
		} else {
			opts = append(opts, workbench.WithRecorder(reg))
			cleanup = func() { reg.Close() }
		}
	}
	return workbench.NewSession(opts...), cleanup, nil
}

func (a *app) openRegistry(ctx context.Context) (*registry.Registry, error) {
	if dir := filepath.Dir(a.cfg.RegistryPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
	}
	return registry.Open(ctx, a.cfg.RegistryPath)
}
