// Package config provides configuration management for tetrapos
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/ben-wes/quatkram"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// TETRAPOS_GEOMETRY_EDGE_LENGTH.
const EnvPrefix = "TETRAPOS"

// Config is the root configuration structure
type Config struct {
	Geometry GeometryConfig `mapstructure:"geometry"`
	Search   SearchConfig   `mapstructure:"search"`
	Solver   SolverConfig   `mapstructure:"solver"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// GeometryConfig describes the microphone array
type GeometryConfig struct {
	EdgeLength float64 `mapstructure:"edge_length"` // mm
	Layout     string  `mapstructure:"layout"`      // regular, legacy
}

// SearchConfig configures the range search of relative solves
type SearchConfig struct {
	Strategy          string  `mapstructure:"strategy"` // bisect, scan
	Start             float64 `mapstructure:"start"`
	Step              float64 `mapstructure:"step"`
	Ceiling           float64 `mapstructure:"ceiling"`
	Tolerance         float64 `mapstructure:"tolerance"`
	MaxBisections     int     `mapstructure:"max_bisections"`
	PolishEvaluations int     `mapstructure:"polish_evaluations"`
	DisablePolish     bool    `mapstructure:"disable_polish"`
}

// SolverConfig configures solver behaviour
type SolverConfig struct {
	Parallel bool `mapstructure:"parallel"`
	Debug    bool `mapstructure:"debug"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Default returns the default configuration
func Default() *Config {
	s := tetrapos.DefaultSearchConfig()
	return &Config{
		Geometry: GeometryConfig{
			EdgeLength: tetrapos.DefaultEdgeLength,
			Layout:     tetrapos.LayoutRegular.String(),
		},
		Search: SearchConfig{
			Strategy:          s.Strategy.String(),
			Start:             s.Start,
			Step:              s.Step,
			Ceiling:           s.Ceiling,
			Tolerance:         s.Tolerance,
			MaxBisections:     s.MaxBisections,
			PolishEvaluations: s.PolishEvaluations,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from file and environment.
// A missing file falls back to defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			slog.Warn("config file not found, using defaults", "path", path)
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	// Geometry defaults
	v.SetDefault("geometry.edge_length", d.Geometry.EdgeLength)
	v.SetDefault("geometry.layout", d.Geometry.Layout)

	// Search defaults
	v.SetDefault("search.strategy", d.Search.Strategy)
	v.SetDefault("search.start", d.Search.Start)
	v.SetDefault("search.step", d.Search.Step)
	v.SetDefault("search.ceiling", d.Search.Ceiling)
	v.SetDefault("search.tolerance", d.Search.Tolerance)
	v.SetDefault("search.max_bisections", d.Search.MaxBisections)
	v.SetDefault("search.polish_evaluations", d.Search.PolishEvaluations)
	v.SetDefault("search.disable_polish", false)

	// Solver defaults
	v.SetDefault("solver.parallel", false)
	v.SetDefault("solver.debug", false)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	sc, err := c.SolverConfig()
	if err != nil {
		return err
	}

	if err := sc.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	return nil
}

// SolverConfig converts the file configuration into a solver configuration.
// The logger is left nil.
func (c *Config) SolverConfig() (*tetrapos.Config, error) {
	layout, err := tetrapos.ParseLayout(c.Geometry.Layout)
	if err != nil {
		return nil, err
	}

	strategy, err := tetrapos.ParseStrategy(c.Search.Strategy)
	if err != nil {
		return nil, err
	}

	return &tetrapos.Config{
		EdgeLength: c.Geometry.EdgeLength,
		Layout:     layout,
		Search: tetrapos.SearchConfig{
			Strategy:          strategy,
			Start:             c.Search.Start,
			Step:              c.Search.Step,
			Ceiling:           c.Search.Ceiling,
			Tolerance:         c.Search.Tolerance,
			MaxBisections:     c.Search.MaxBisections,
			PolishEvaluations: c.Search.PolishEvaluations,
			DisablePolish:     c.Search.DisablePolish,
		},
		Debug:          c.Solver.Debug,
		EnableParallel: c.Solver.Parallel,
	}, nil
}
