// tetrapos locates a sound source from distances to a tetrahedral
// microphone array.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ben-wes/quatkram"
	"github.com/ben-wes/quatkram/internal/config"
)

var version = "dev"

// options holds the global flags.
type options struct {
	configPath string
	edge       float64
	layout     string
	strategy   string
	debug      bool
	parallel   bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tetrapos",
		Short: "Locate a sound source with a tetrahedral microphone array",
		Long: `tetrapos solves the position of a sound source from the distances to the
four microphones of a regular tetrahedron (absolute, time of arrival) or
from their differences (relative, time difference of arrival).

Units are millimetres. Microphone 0 is the front of the base triangle,
1 and 2 the back left and right, 3 the top.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (YAML)")
	pf.Float64VarP(&opts.edge, "edge", "e", tetrapos.DefaultEdgeLength, "edge length in mm")
	pf.StringVar(&opts.layout, "layout", "", "anchor layout (regular, legacy)")
	pf.StringVarP(&opts.strategy, "strategy", "s", "", "range search strategy (bisect, scan)")
	pf.BoolVarP(&opts.debug, "debug", "d", false, "log geometry and intermediate values")
	pf.BoolVar(&opts.parallel, "parallel", false, "solve batches on all CPUs")

	root.AddCommand(
		newAnchorsCmd(opts),
		newSolveCmd(opts, tetrapos.ModeAbsolute),
		newSolveCmd(opts, tetrapos.ModeRelative),
		newSimulateCmd(opts),
		newBatchCmd(opts),
	)

	return root
}

// loadConfig merges file, environment and explicitly set flags.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("edge") {
		cfg.Geometry.EdgeLength = opts.edge
	}
	if flags.Changed("layout") {
		cfg.Geometry.Layout = opts.layout
	}
	if flags.Changed("strategy") {
		cfg.Search.Strategy = opts.strategy
	}
	if flags.Changed("debug") {
		cfg.Solver.Debug = opts.debug
	}
	if flags.Changed("parallel") {
		cfg.Solver.Parallel = opts.parallel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newSolver builds a solver from the merged configuration.
func newSolver(cmd *cobra.Command, opts *options) (*tetrapos.Solver, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	sc, err := cfg.SolverConfig()
	if err != nil {
		return nil, err
	}
	sc.Logger = setupLogger(cfg.Logging, cmd.ErrOrStderr())

	return tetrapos.New(sc)
}

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
