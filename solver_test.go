package tetrapos

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-wes/quatkram/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSolver(t testing.TB, modify func(*Config)) *Solver {
	t.Helper()
	c := DefaultConfig()
	c.Logger = discardLogger()
	if modify != nil {
		modify(c)
	}
	s, err := New(c)
	require.NoError(t, err)
	return s
}

func assertPosition(t *testing.T, want, got Position, tolerance float64) {
	t.Helper()
	testutil.AssertVecInDelta(t, want.Vec(), got.Vec(), tolerance)
}

func TestSolver_Anchors(t *testing.T) {
	s := newTestSolver(t, nil)
	anchors := s.Anchors()

	assertPosition(t, Position{Y: 577.350269189626}, anchors[0], 1e-9)
	assertPosition(t, Position{X: -500, Y: -288.675134594813}, anchors[1], 1e-9)
	assertPosition(t, Position{X: 500, Y: -288.675134594813}, anchors[2], 1e-9)
	assertPosition(t, Position{Z: 816.496580927726}, anchors[3], 1e-9)

	for i := range NumMics {
		for j := i + 1; j < NumMics; j++ {
			assert.InDelta(t, 1000.0, anchors[i].DistanceTo(anchors[j]), 1e-9, "mics %d-%d", i, j)
		}
	}
}

func TestSolver_AnchorsLegacy(t *testing.T) {
	s := newTestSolver(t, func(c *Config) { c.Layout = LayoutLegacy })
	anchors := s.Anchors()

	assertPosition(t, Position{Y: 408.248290463863}, anchors[0], 1e-9)
	assertPosition(t, Position{X: 500, Y: -204.124145231932}, anchors[2], 1e-9)
	assertPosition(t, Position{Z: 612.372435695795}, anchors[3], 1e-9)
}

func TestSolver_SolveAbsolute(t *testing.T) {
	s := newTestSolver(t, nil)

	t.Run("Reference scenario", func(t *testing.T) {
		res, err := s.SolveAbsolute(763.762616, 763.762616, 763.762616, 316.496581)
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.Equal(t, ModeAbsolute, res.Mode)
		assertPosition(t, Position{Z: 500}, res.Position, 1e-3)
		assert.Equal(t, 1, res.Iterations)
		assert.InDelta(t, 763.762616, res.Range, 0)
		assert.Less(t, res.Residual, 1e-3)
	})

	sources := []Position{
		{},
		{X: 100, Y: 200, Z: 300},
		{X: -600, Y: -600},
		{X: 3000, Y: -2000, Z: 100},
		{X: 0.5, Y: -0.25, Z: 0.125},
	}
	for _, p := range sources {
		t.Run(p.String(), func(t *testing.T) {
			d := s.Simulate(p)
			res, err := s.SolveAbsolute(d[:]...)
			require.NoError(t, err)
			assertPosition(t, p, res.Position, 1e-6)
		})
	}
}

func TestSolver_SolveRelative(t *testing.T) {
	s := newTestSolver(t, nil)

	t.Run("Reference scenario", func(t *testing.T) {
		res, err := s.SolveRelative(763.762616, 763.762616, 763.762616, 316.496581)
		require.NoError(t, err)
		assert.Equal(t, StatusOK, res.Status)
		assert.Equal(t, ModeRelative, res.Mode)
		assertPosition(t, Position{Z: 500}, res.Position, 1e-3)
		assert.InDelta(t, 763.762616, res.Range, 1e-3)
		assert.Less(t, res.Residual, DefaultSearchTolerance)
		assert.Greater(t, res.Iterations, 1)
	})

	t.Run("Only differences matter", func(t *testing.T) {
		want := Position{X: 100, Y: 200, Z: 300}
		d := s.Simulate(want)
		for _, offset := range []float64{0, -d[0], 1234.5} {
			res, err := s.SolveRelative(d[0]+offset, d[1]+offset, d[2]+offset, d[3]+offset)
			require.NoError(t, err, "offset %v", offset)
			assertPosition(t, want, res.Position, 1e-6)
		}
	})

	t.Run("Negative values allowed", func(t *testing.T) {
		res, err := s.SolveRelative(0, 0, 0, -447.2660348982473)
		require.NoError(t, err)
		assertPosition(t, Position{Z: 500}, res.Position, 1e-6)
	})

	t.Run("Impossible differences", func(t *testing.T) {
		res, err := s.SolveRelative(0, 5000, 0, 0)
		require.ErrorIs(t, err, ErrSearchExhausted)
		assert.Equal(t, StatusSearchExhausted, res.Status)
		assert.False(t, res.OK())
		assert.Positive(t, res.Iterations)
	})
}

// TestSolver_SearchBounds checks that a source outside the configured
// search interval is reported as not found.
func TestSolver_SearchBounds(t *testing.T) {
	sources := []Position{
		{X: 6000, Y: 6000, Z: -2000},
		{X: 12000, Y: 3000},
		{X: 20000, Y: 5000, Z: 3000},
	}

	for _, strategy := range []SearchStrategy{StrategyBisect, StrategyScan} {
		s := newTestSolver(t, func(c *Config) {
			c.Search.Strategy = strategy
			c.Search.Ceiling = 3000
		})

		for _, p := range sources {
			t.Run(strategy.String()+"/"+p.String(), func(t *testing.T) {
				d := s.Simulate(p)
				require.Greater(t, d[0], 3000.0)

				res, err := s.SolveRelative(d[:]...)
				require.ErrorIs(t, err, ErrSearchExhausted)
				assert.Equal(t, StatusSearchExhausted, res.Status)
				assert.Less(t, res.Range, 3000.0)
			})
		}
	}

	t.Run("Within ceiling", func(t *testing.T) {
		s := newTestSolver(t, func(c *Config) { c.Search.Ceiling = 3000 })
		want := Position{X: -150, Y: -250, Z: 600}
		d := s.Simulate(want)

		res, err := s.SolveRelative(d[:]...)
		require.NoError(t, err)
		assertPosition(t, want, res.Position, 1e-6)
	})
}

func TestSolver_LegacyLayout(t *testing.T) {
	s := newTestSolver(t, func(c *Config) { c.Layout = LayoutLegacy })
	want := Position{Z: 500}
	d := s.Simulate(want)

	res, err := s.SolveAbsolute(d[:]...)
	require.NoError(t, err)
	assertPosition(t, want, res.Position, 1e-6)

	res, err = s.SolveRelative(d[:]...)
	require.NoError(t, err)
	assertPosition(t, want, res.Position, 1e-6)
	assert.InDelta(t, 645.497224, res.Range, 1e-6)

	scan := newTestSolver(t, func(c *Config) {
		c.Layout = LayoutLegacy
		c.Search.Strategy = StrategyScan
	})
	res, err = scan.SolveRelative(d[:]...)
	require.ErrorIs(t, err, ErrSearchExhausted)
	assert.Equal(t, StatusSearchExhausted, res.Status)
}

func TestSolver_ScanStrategy(t *testing.T) {
	s := newTestSolver(t, func(c *Config) { c.Search.Strategy = StrategyScan })

	t.Run("Exhausts between grid samples", func(t *testing.T) {
		res, err := s.SolveRelative(763.762616, 763.762616, 763.762616, 316.496581)
		require.ErrorIs(t, err, ErrSearchExhausted)
		assert.Equal(t, StatusSearchExhausted, res.Status)
		assert.Equal(t, 990, res.Iterations)
	})

	t.Run("Quantised acceptance", func(t *testing.T) {
		want := Position{X: -600, Y: -600}
		d := s.Simulate(want)
		res, err := s.SolveRelative(d[:]...)
		require.NoError(t, err)
		assert.InDelta(t, 1320.0, res.Range, 1e-9)
		dist := res.Position.DistanceTo(want)
		assert.Greater(t, dist, 1.0)
		assert.Less(t, dist, 5.0)
	})
}

func TestSolver_Arity(t *testing.T) {
	s := newTestSolver(t, nil)

	for _, n := range []int{0, 3, 5} {
		d := make([]float64, n)
		for i := range d {
			d[i] = 700
		}

		res, err := s.SolveAbsolute(d...)
		require.ErrorIs(t, err, ErrArity, "absolute n=%d", n)
		assert.Equal(t, Result{}, res)

		res, err = s.SolveRelative(d...)
		require.ErrorIs(t, err, ErrArity, "relative n=%d", n)
		assert.Equal(t, Result{}, res)
	}
}

func TestSolver_InvalidMeasurement(t *testing.T) {
	s := newTestSolver(t, nil)

	tests := []struct {
		name string
		mode Mode
		d    []float64
	}{
		{"NaN absolute", ModeAbsolute, []float64{math.NaN(), 1, 1, 1}},
		{"Inf relative", ModeRelative, []float64{0, math.Inf(1), 0, 0}},
		{"Negative absolute", ModeAbsolute, []float64{700, -1, 700, 700}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Solve(tt.mode, tt.d)
			require.ErrorIs(t, err, ErrInvalidMeasurement)
			assert.Equal(t, Result{}, res)
		})
	}

	_, err := s.Solve(Mode(7), []float64{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSolver_Configure(t *testing.T) {
	s := newTestSolver(t, nil)

	t.Run("Idempotent", func(t *testing.T) {
		require.NoError(t, s.Configure(250))
		first := s.Anchors()
		require.NoError(t, s.Configure(250))
		assert.Equal(t, first, s.Anchors())
		assert.InDelta(t, 250.0, s.EdgeLength(), 0)
	})

	t.Run("Invalid edge keeps geometry", func(t *testing.T) {
		require.NoError(t, s.Configure(1000))
		before := s.Anchors()

		for _, edge := range []float64{0, -10, math.NaN(), math.Inf(1)} {
			err := s.Configure(edge)
			require.ErrorIs(t, err, ErrInvalidEdge, "edge %v", edge)
			require.ErrorIs(t, err, ErrInvalidConfig)
		}

		assert.Equal(t, before, s.Anchors())
		assert.InDelta(t, 1000.0, s.EdgeLength(), 0)
	})

	t.Run("Solves follow geometry", func(t *testing.T) {
		require.NoError(t, s.Configure(300))
		want := Position{X: 40, Y: -30, Z: 120}
		d := s.Simulate(want)

		res, err := s.SolveAbsolute(d[:]...)
		require.NoError(t, err)
		assertPosition(t, want, res.Position, 1e-6)
	})
}

func TestSolver_Singular(t *testing.T) {
	s := newTestSolver(t, func(c *Config) { c.EdgeLength = 0.01 })

	res, err := s.SolveAbsolute(1, 1, 1, 1)
	require.ErrorIs(t, err, ErrSingularGeometry)
	assert.Equal(t, StatusSingular, res.Status)
	assert.Equal(t, Position{}, res.Position)

	res, err = s.SolveRelative(1, 1, 1, 1)
	require.ErrorIs(t, err, ErrSingularGeometry)
	assert.Equal(t, StatusSingular, res.Status)
	assert.Equal(t, Position{}, res.Position)
	assert.Equal(t, 1, res.Iterations)
}

func TestSolver_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s, err := New(&Config{EdgeLength: 1000, Debug: true, Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "geometry configured")
	assert.Contains(t, buf.String(), "mic3=")

	buf.Reset()
	_, err = s.SolveRelative(0, 0, 0, -447.2660348982473)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "tetrapos: solved")
	assert.Contains(t, buf.String(), "mode=relative")
	assert.Contains(t, buf.String(), "differences_mm=")

	s.SetDebug(false)
	buf.Reset()
	_, err = s.SolveAbsolute(763.762616, 763.762616, 763.762616, 316.496581)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

// TestSolver_ConcurrentConfigure reconfigures while solving. Every result
// must match one of the two geometries.
func TestSolver_ConcurrentConfigure(t *testing.T) {
	s := newTestSolver(t, nil)
	want := Position{X: 100, Y: 200, Z: 300}

	small, err := SimulateDistances(500, want)
	require.NoError(t, err)
	large, err := SimulateDistances(1000, want)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			edge := 500.0
			if i%2 == 0 {
				edge = 1000
			}
			assert.NoError(t, s.Configure(edge))
		}
	}()

	for range 200 {
		for _, d := range [][NumMics]float64{small, large} {
			res, err := s.SolveAbsolute(d[:]...)
			require.NoError(t, err)
			assert.Equal(t, StatusOK, res.Status)
		}
	}

	close(stop)
	wg.Wait()
}
