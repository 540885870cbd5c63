package gistool

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Defaults applied when the corresponding flags are absent.
const (
	DefaultStartYear = 2001
	DefaultEndYear   = 2020
	DefaultPrefix    = "modis_"
)

// ConfigError reports a missing or invalid configuration field. It is the
// only error kind that aborts a run before any filesystem or GDAL work.
type ConfigError struct {
	Field string
	Msg   string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// RunConfig describes a single run. It is built once from CLI input and
// passed unchanged to every component.
type RunConfig struct {
	InputDir  string
	OutputDir string
	CacheDir  string
	Variables []string
	TargetCRS int

	StartDate time.Time
	EndDate   time.Time

	// optional explicit window, overridden by ShapefilePath when set
	LatLims *[2]float64
	LonLims *[2]float64

	ShapefilePath string
	FeatureID     string

	WriteFinalGeotiff bool

	Stats     []string
	IncludeNA bool
	Quantiles []float64

	OutputPrefix string
	LibPath      string

	// SubdatasetIndex selects which embedded layer of each granule holds the
	// variable of interest. MODIS products list it first.
	SubdatasetIndex int

	KeepCache    bool
	Jobs         int
	StatsTimeout time.Duration
}

// ApplyDefaults fills the defaulted fields, warning when the time range was
// not given explicitly.
func (cfg *RunConfig) ApplyDefaults(log *zap.Logger) {
	if cfg.StartDate.IsZero() && cfg.EndDate.IsZero() {
		cfg.StartDate = time.Date(DefaultStartYear, 1, 1, 0, 0, 0, 0, time.UTC)
		cfg.EndDate = time.Date(DefaultEndYear, 1, 1, 0, 0, 0, 0, time.UTC)
		log.Warn("no start/end date given, defaulting",
			zap.Int("startYear", DefaultStartYear), zap.Int("endYear", DefaultEndYear))
	}
	if cfg.OutputPrefix == "" {
		cfg.OutputPrefix = DefaultPrefix
	}
	if cfg.SubdatasetIndex < 1 {
		cfg.SubdatasetIndex = 1
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
}

// Validate checks the RunConfig invariants. It performs no I/O.
func (cfg RunConfig) Validate() error {
	required := []struct {
		field, value string
	}{
		{"dataset-dir", cfg.InputDir},
		{"output-dir", cfg.OutputDir},
		{"cache", cfg.CacheDir},
		{"lib-path", cfg.LibPath},
	}
	for _, r := range required {
		if r.value == "" {
			return ConfigError{Field: r.field, Msg: "required"}
		}
	}
	if len(cfg.Variables) == 0 {
		return ConfigError{Field: "variable", Msg: "at least one variable is required"}
	}
	if cfg.TargetCRS <= 0 {
		return ConfigError{Field: "crs", Msg: "a positive EPSG code is required"}
	}
	if cfg.ShapefilePath == "" && (cfg.LatLims == nil || cfg.LonLims == nil) {
		return ConfigError{Field: "lat-lims/lon-lims", Msg: "required when no shape file is given"}
	}
	if cfg.StartDate.IsZero() != cfg.EndDate.IsZero() {
		return ConfigError{Field: "start-date/end-date", Msg: "both or neither must be given"}
	}
	if cfg.StartDate.Year() > cfg.EndDate.Year() {
		return ConfigError{Field: "start-date/end-date", Msg: "start year after end year"}
	}
	for _, q := range cfg.Quantiles {
		if q < 0 || q > 1 {
			return ConfigError{Field: "quantile", Msg: fmt.Sprintf("%g outside [0,1]", q)}
		}
	}
	return nil
}

// StatsEnabled reports whether the zonal statistics stage runs: it needs
// both a boundary and a statistics list.
func (cfg RunConfig) StatsEnabled() bool {
	return cfg.ShapefilePath != "" && len(cfg.Stats) > 0
}

// YearRange returns the inclusive sequence of years covered by the run.
func (cfg RunConfig) YearRange() []int {
	start, end := cfg.StartDate.Year(), cfg.EndDate.Year()
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years
}

// Pair identifies one unit of work.
type Pair struct {
	Variable string
	Year     int
}

// Pairs enumerates the variable × year cross product, variable outer loop.
func Pairs(variables []string, years []int) []Pair {
	pairs := make([]Pair, 0, len(variables)*len(years))
	for _, v := range variables {
		for _, y := range years {
			pairs = append(pairs, Pair{Variable: v, Year: y})
		}
	}
	return pairs
}

// SplitList splits a comma-delimited flag value, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParsePair parses a "min,max" flag value. Input order is not normalized
// here; the extent resolver sorts each pair.
func ParsePair(field, s string) ([2]float64, error) {
	parts := SplitList(s)
	if len(parts) != 2 {
		return [2]float64{}, ConfigError{Field: field, Msg: fmt.Sprintf("expected two comma separated values, got %q", s)}
	}
	var p [2]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return [2]float64{}, ConfigError{Field: field, Msg: fmt.Sprintf("invalid number %q", part)}
		}
		p[i] = v
	}
	return p, nil
}

// ParseQuantiles parses a comma list of reals in [0,1].
func ParseQuantiles(s string) ([]float64, error) {
	var out []float64
	for _, part := range SplitList(s) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, ConfigError{Field: "quantile", Msg: fmt.Sprintf("invalid number %q", part)}
		}
		if v < 0 || v > 1 {
			return nil, ConfigError{Field: "quantile", Msg: fmt.Sprintf("%g outside [0,1]", v)}
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseDate accepts a full date or a bare year.
func ParseDate(field, s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ConfigError{Field: field, Msg: fmt.Sprintf("invalid date %q", s)}
}
