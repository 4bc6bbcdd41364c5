package tetrapos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var batchSources = []Position{
	{Z: 500},
	{Z: -500},
	{X: 10, Y: 10, Z: 10},
	{X: 100, Y: 200, Z: 300},
	{X: -300, Y: 150, Z: 900},
	{X: 1000, Y: 1000, Z: 1000},
	{X: 50, Y: -80, Z: 20},
	{X: 200, Y: -100, Z: 400},
	{X: -150, Y: -250, Z: 600},
	{X: 400, Y: 300, Z: -200},
	{X: -600, Y: -600},
}

func batchInput(t testing.TB, s *Solver) [][]float64 {
	t.Helper()
	sets := make([][]float64, 0, len(batchSources)+1)
	for _, p := range batchSources {
		d := s.Simulate(p)
		sets = append(sets, d[:])
	}
	// Unreachable differences, reported per result.
	return append(sets, []float64{0, 5000, 0, 0})
}

// TestSolveBatchParallel checks that parallel solving produces the same
// results as sequential solving.
func TestSolveBatchParallel(t *testing.T) {
	seq := newTestSolver(t, nil)
	par := newTestSolver(t, func(c *Config) { c.EnableParallel = true })

	for _, mode := range []Mode{ModeAbsolute, ModeRelative} {
		t.Run(mode.String(), func(t *testing.T) {
			input := batchInput(t, seq)
			if mode == ModeAbsolute {
				input = input[:len(batchSources)]
			}

			outSeq, err := seq.SolveBatch(mode, input)
			require.NoError(t, err)
			outPar, err := par.SolveBatch(mode, input)
			require.NoError(t, err)

			require.Len(t, outSeq, len(input))
			// Bit-exact, index aligned.
			assert.Equal(t, outSeq, outPar)

			for i, p := range batchSources {
				assert.Equal(t, StatusOK, outPar[i].Status, "set %d", i)
				assertPosition(t, p, outPar[i].Position, 1e-6)
			}
			if mode == ModeRelative {
				assert.Equal(t, StatusSearchExhausted, outPar[len(input)-1].Status)
			}
		})
	}
}

func TestSolveBatchMatchesSingleSolves(t *testing.T) {
	s := newTestSolver(t, func(c *Config) { c.EnableParallel = true })
	input := batchInput(t, s)

	out, err := s.SolveBatch(ModeRelative, input)
	require.NoError(t, err)

	for i, d := range input {
		single, _ := s.SolveRelative(d...)
		assert.Equal(t, single, out[i], "set %d", i)
	}
}

func TestSolveBatchValidation(t *testing.T) {
	s := newTestSolver(t, func(c *Config) { c.EnableParallel = true })

	t.Run("Arity", func(t *testing.T) {
		out, err := s.SolveBatch(ModeRelative, [][]float64{{1, 2, 3, 4}, {1, 2, 3}})
		require.ErrorIs(t, err, ErrArity)
		assert.Contains(t, err.Error(), "set 1")
		assert.Nil(t, out)
	})

	t.Run("Negative absolute", func(t *testing.T) {
		_, err := s.SolveBatch(ModeAbsolute, [][]float64{{700, 700, -700, 700}})
		require.ErrorIs(t, err, ErrInvalidMeasurement)
	})

	t.Run("Unknown mode", func(t *testing.T) {
		_, err := s.SolveBatch(Mode(5), [][]float64{{1, 2, 3, 4}})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("Empty", func(t *testing.T) {
		out, err := s.SolveBatch(ModeAbsolute, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("Singular per result", func(t *testing.T) {
		tiny := newTestSolver(t, func(c *Config) {
			c.EdgeLength = 0.01
			c.EnableParallel = true
		})
		out, err := tiny.SolveBatch(ModeAbsolute, [][]float64{{1, 1, 1, 1}, {2, 2, 2, 2}})
		require.NoError(t, err)
		for _, r := range out {
			assert.Equal(t, StatusSingular, r.Status)
		}
	})
}

// BenchmarkSolveBatchSequential benchmarks sequential batch solving.
func BenchmarkSolveBatchSequential(b *testing.B) {
	benchmarkSolveBatch(b, false)
}

// BenchmarkSolveBatchParallel benchmarks parallel batch solving.
func BenchmarkSolveBatchParallel(b *testing.B) {
	benchmarkSolveBatch(b, true)
}

func benchmarkSolveBatch(b *testing.B, parallel bool) {
	b.Helper()

	s := newTestSolver(b, func(c *Config) { c.EnableParallel = parallel })
	input := batchInput(b, s)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := s.SolveBatch(ModeRelative, input); err != nil {
			b.Fatalf("SolveBatch failed: %v", err)
		}
	}
}
