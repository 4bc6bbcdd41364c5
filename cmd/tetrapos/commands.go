package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ben-wes/quatkram"
)

func newAnchorsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "anchors",
		Short: "Print the microphone coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSolver(cmd, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "edge %s mm\n", formatMM(s.EdgeLength()))
			for i, a := range s.Anchors() {
				fmt.Fprintf(out, "mic%d %s %s %s\n", i, formatMM(a.X), formatMM(a.Y), formatMM(a.Z))
			}
			return nil
		},
	}
}

func newSolveCmd(opts *options, mode tetrapos.Mode) *cobra.Command {
	short := "Locate from absolute distances d0 d1 d2 d3 (mm)"
	if mode == tetrapos.ModeRelative {
		short = "Locate from distances of which only differences to d0 matter (mm)"
	}

	return &cobra.Command{
		Use:   mode.String() + " d0 d1 d2 d3",
		Short: short,
		Args:  cobra.ExactArgs(tetrapos.NumMics),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseFloats(args)
			if err != nil {
				return err
			}

			s, err := newSolver(cmd, opts)
			if err != nil {
				return err
			}

			res, solveErr := s.Solve(mode, d)
			if res.Iterations > 0 {
				printResult(cmd, res)
			}
			return solveErr
		},
	}
}

func newSimulateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate x y z",
		Short: "Print the exact distances from a point to the microphones",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args)
			if err != nil {
				return err
			}

			s, err := newSolver(cmd, opts)
			if err != nil {
				return err
			}

			d := s.Simulate(tetrapos.Position{X: v[0], Y: v[1], Z: v[2]})
			fmt.Fprintln(cmd.OutOrStdout(), joinMM(d[:]))
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, res tetrapos.Result) {
	out := cmd.OutOrStdout()
	p := res.Position
	fmt.Fprintf(out, "position %s %s %s\n", formatMM(p.X), formatMM(p.Y), formatMM(p.Z))
	fmt.Fprintf(out, "status %s\n", res.Status)
	fmt.Fprintf(out, "range %s\n", formatMM(res.Range))
	fmt.Fprintf(out, "residual %s\n", formatMM(res.Residual))
	fmt.Fprintf(out, "iterations %d\n", res.Iterations)
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatMM(v float64) string {
	// Print -0.000 as 0.000.
	if math.Abs(v) < 0.5*math.Pow10(-coordinatePrecision) {
		v = 0
	}
	return strconv.FormatFloat(v, floatFormat, coordinatePrecision, floatBits)
}

func joinMM(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatMM(v)
	}
	return strings.Join(parts, " ")
}
