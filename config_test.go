package gistool

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func validConfig() RunConfig {
	lat := [2]float64{10, 20}
	lon := [2]float64{30, 40}
	return RunConfig{
		InputDir:  "/data/modis",
		OutputDir: "/out",
		CacheDir:  "/cache",
		LibPath:   "/lib",
		Variables: []string{"MOD13Q1.061"},
		TargetCRS: 4326,
		StartDate: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
		LatLims:   &lat,
		LonLims:   &lon,
	}
}

func TestYearRange(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, []int{2015, 2016, 2017}, cfg.YearRange())

	cfg.EndDate = cfg.StartDate
	assert.Equal(t, []int{2015}, cfg.YearRange())
}

func TestApplyDefaults(t *testing.T) {
	cfg := RunConfig{}
	cfg.ApplyDefaults(zap.NewNop())
	assert.Equal(t, DefaultStartYear, cfg.StartDate.Year())
	assert.Equal(t, DefaultEndYear, cfg.EndDate.Year())
	assert.Equal(t, DefaultPrefix, cfg.OutputPrefix)
	assert.Equal(t, 1, cfg.SubdatasetIndex)
	assert.Equal(t, 1, cfg.Jobs)

	cfg = RunConfig{StartDate: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), OutputPrefix: "x_"}
	cfg.ApplyDefaults(zap.NewNop())
	assert.Equal(t, 2010, cfg.StartDate.Year())
	assert.Equal(t, "x_", cfg.OutputPrefix)

	// a half-given range is left alone for Validate to reject
	cfg = RunConfig{EndDate: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg.ApplyDefaults(zap.NewNop())
	assert.True(t, cfg.StartDate.IsZero())
	assert.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	testfunc := func(mutate func(*RunConfig), field string) {
		t.Helper()
		cfg := validConfig()
		mutate(&cfg)
		err := cfg.Validate()
		var ce ConfigError
		if assert.Error(t, err) && assert.True(t, errors.As(err, &ce)) {
			assert.Equal(t, field, ce.Field)
		}
	}

	assert.NoError(t, validConfig().Validate())
	testfunc(func(c *RunConfig) { c.InputDir = "" }, "dataset-dir")
	testfunc(func(c *RunConfig) { c.OutputDir = "" }, "output-dir")
	testfunc(func(c *RunConfig) { c.CacheDir = "" }, "cache")
	testfunc(func(c *RunConfig) { c.LibPath = "" }, "lib-path")
	testfunc(func(c *RunConfig) { c.Variables = nil }, "variable")
	testfunc(func(c *RunConfig) { c.TargetCRS = 0 }, "crs")
	testfunc(func(c *RunConfig) { c.LatLims = nil }, "lat-lims/lon-lims")
	testfunc(func(c *RunConfig) { c.LonLims = nil }, "lat-lims/lon-lims")
	testfunc(func(c *RunConfig) {
		c.StartDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		c.EndDate = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	}, "start-date/end-date")
	testfunc(func(c *RunConfig) { c.StartDate = time.Time{} }, "start-date/end-date")
	testfunc(func(c *RunConfig) { c.EndDate = time.Time{} }, "start-date/end-date")
	testfunc(func(c *RunConfig) { c.Quantiles = []float64{1.5} }, "quantile")

	// a shapefile stands in for explicit limits
	cfg := validConfig()
	cfg.LatLims, cfg.LonLims = nil, nil
	cfg.ShapefilePath = "bounds.shp"
	assert.NoError(t, cfg.Validate())
}

func TestStatsEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.StatsEnabled())
	cfg.Stats = []string{"mean"}
	assert.False(t, cfg.StatsEnabled())
	cfg.ShapefilePath = "bounds.shp"
	assert.True(t, cfg.StatsEnabled())
}

func TestPairsOrder(t *testing.T) {
	pairs := Pairs([]string{"a", "b"}, []int{2001, 2002})
	assert.Equal(t, []Pair{
		{"a", 2001}, {"a", 2002},
		{"b", 2001}, {"b", 2002},
	}, pairs)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList("a,b"))
	assert.Equal(t, []string{"a", "b"}, SplitList(" a ,, b ,"))
	assert.Nil(t, SplitList(""))
}

func TestParsePair(t *testing.T) {
	p, err := ParsePair("lat-lims", "20,10")
	assert.NoError(t, err)
	assert.Equal(t, [2]float64{20, 10}, p)

	_, err = ParsePair("lat-lims", "1")
	assert.Error(t, err)
	_, err = ParsePair("lat-lims", "a,b")
	assert.Error(t, err)
}

func TestParseQuantiles(t *testing.T) {
	q, err := ParseQuantiles("0.1,0.5,0.9")
	assert.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, q)

	_, err = ParseQuantiles("0.1,1.1")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("start-date", "2015")
	assert.NoError(t, err)
	assert.Equal(t, 2015, d.Year())

	d, err = ParseDate("end-date", "2017-06-30")
	assert.NoError(t, err)
	assert.Equal(t, 2017, d.Year())

	_, err = ParseDate("start-date", "junk")
	var ce ConfigError
	assert.True(t, errors.As(err, &ce))
}
