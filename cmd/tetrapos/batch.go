package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ben-wes/quatkram"
)

func newBatchCmd(opts *options) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Solve CSV rows of four distances from a file or stdin",
		Long: `batch reads one measurement per CSV row (d0,d1,d2,d3) and writes
x,y,z,status,range,residual,iterations per row. Lines starting with # are
skipped. Rows that cannot be solved are reported by their status.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := tetrapos.ParseMode(mode)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			sets, err := readMeasurements(in)
			if err != nil {
				return err
			}

			s, err := newSolver(cmd, opts)
			if err != nil {
				return err
			}

			results, err := s.SolveBatch(m, sets)
			if err != nil {
				return err
			}

			return writeResults(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", tetrapos.ModeRelative.String(), "measurement mode (absolute, relative)")

	return cmd
}

// readMeasurements parses CSV rows of four floats.
func readMeasurements(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = tetrapos.NumMics
	cr.TrimLeadingSpace = true

	var sets [][]float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read measurements: %w", err)
		}

		row := make([]float64, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				line, _ := cr.FieldPos(i)
				return nil, fmt.Errorf("line %d field %d: %w", line, i+1, err)
			}
			row[i] = v
		}
		sets = append(sets, row)
	}

	return sets, nil
}

func writeResults(w io.Writer, results []tetrapos.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(batchHeader); err != nil {
		return err
	}

	for _, r := range results {
		rec := []string{
			formatMM(r.Position.X),
			formatMM(r.Position.Y),
			formatMM(r.Position.Z),
			r.Status.String(),
			formatMM(r.Range),
			formatMM(r.Residual),
			strconv.Itoa(r.Iterations),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
