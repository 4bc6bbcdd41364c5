package tetrapos

import (
	"fmt"
	"strings"

	"github.com/ben-wes/quatkram/internal/geometry"
	"github.com/ben-wes/quatkram/internal/locate"
)

// withDefaults fills zero-valued fields with the package defaults.
func (s SearchConfig) withDefaults() SearchConfig {
	d := DefaultSearchConfig()

	if s.Start == 0 {
		s.Start = d.Start
	}
	if s.Step == 0 {
		s.Step = d.Step
	}
	if s.Ceiling == 0 {
		s.Ceiling = d.Ceiling
	}
	if s.Tolerance == 0 {
		s.Tolerance = d.Tolerance
	}
	if s.MaxBisections == 0 {
		s.MaxBisections = d.MaxBisections
	}
	if s.PolishEvaluations == 0 {
		s.PolishEvaluations = d.PolishEvaluations
	}

	return s
}

// buildSearchParams converts the public search settings into the
// parameters of the internal range search.
func buildSearchParams(s SearchConfig) locate.SearchParams {
	p := locate.SearchParams{
		Start:             s.Start,
		Step:              s.Step,
		Ceiling:           s.Ceiling,
		Tolerance:         s.Tolerance,
		MaxBisections:     s.MaxBisections,
		BracketResolution: defaultBracketResolution,
		PolishEvaluations: s.PolishEvaluations,
	}

	switch s.Strategy {
	case StrategyBisect:
		p.Strategy = locate.StrategyBisect
	case StrategyScan:
		p.Strategy = locate.StrategyScan
	default:
		// Rejected by locate.SearchParams.Validate.
		p.Strategy = locate.Strategy(s.Strategy)
	}

	if s.DisablePolish {
		p.PolishEvaluations = 0
	}

	return p
}

// geometryLayout maps the public layout onto the geometry package.
func geometryLayout(l Layout) geometry.Layout {
	switch l {
	case LayoutLegacy:
		return geometry.LayoutLegacy
	default:
		return geometry.LayoutRegular
	}
}

// String returns the strategy name.
func (s SearchStrategy) String() string {
	switch s {
	case StrategyBisect:
		return "bisect"
	case StrategyScan:
		return "scan"
	default:
		return fmt.Sprintf("SearchStrategy(%d)", int(s))
	}
}

// ParseStrategy parses "bisect" or "scan".
func ParseStrategy(s string) (SearchStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bisect", "":
		return StrategyBisect, nil
	case "scan":
		return StrategyScan, nil
	default:
		return 0, fmt.Errorf("%w: unknown search strategy %q", ErrInvalidConfig, s)
	}
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeAbsolute:
		return "absolute"
	case ModeRelative:
		return "relative"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "absolute"/"toa" or "relative"/"tdoa".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absolute", "toa":
		return ModeAbsolute, nil
	case "relative", "tdoa":
		return ModeRelative, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutRegular, LayoutLegacy:
		return geometryLayout(l).String()
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses "regular" or "legacy".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular", "":
		return LayoutRegular, nil
	case "legacy":
		return LayoutLegacy, nil
	default:
		return 0, fmt.Errorf("%w: unknown layout %q", ErrInvalidConfig, s)
	}
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSingular:
		return "singular"
	case StatusSearchExhausted:
		return "search-exhausted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}
