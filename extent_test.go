package gistool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSortPair(t *testing.T) {
	a, b := sortPair(5, 3)
	assert.Equal(t, 3.0, a)
	assert.Equal(t, 5.0, b)
	a, b = sortPair(-3, 5)
	assert.Equal(t, -3.0, a)
	assert.Equal(t, 5.0, b)
}

func TestBoxFromPairsNormalized(t *testing.T) {
	cases := [][2][2]float64{
		{{10, 20}, {30, 40}},
		{{20, 10}, {40, 30}},
		{{20, 10}, {30, 40}},
		{{10, 20}, {40, 30}},
	}
	for _, c := range cases {
		b := boxFromPairs(c[0], c[1])
		assert.LessOrEqual(t, b.LatMin, b.LatMax)
		assert.LessOrEqual(t, b.LonMin, b.LonMax)
		assert.Equal(t, BoundingBox{LatMin: 10, LatMax: 20, LonMin: 30, LonMax: 40}, b)
	}
}

func TestProjWinCornerOrder(t *testing.T) {
	// -projwin wants ulx uly lrx lry, not min/min max/max
	b := BoundingBox{LatMin: 10, LatMax: 20, LonMin: 30, LonMax: 40}
	assert.Equal(t, [4]float64{30, 20, 40, 10}, b.ProjWin())
}

func TestResolveExtentExplicit(t *testing.T) {
	cfg := validConfig()
	cfg.LatLims = &[2]float64{20, 10}
	cfg.LonLims = &[2]float64{40, 30}
	b, err := ResolveExtent(cfg, zap.NewNop())
	assert.NoError(t, err)
	assert.Equal(t, BoundingBox{LatMin: 10, LatMax: 20, LonMin: 30, LonMax: 40}, b)
}

func TestMergeEnvelopes(t *testing.T) {
	_, ok := mergeEnvelopes(nil)
	assert.False(t, ok)

	ext, ok := mergeEnvelopes([][4]float64{{30, 10, 35, 15}})
	assert.True(t, ok)
	assert.Equal(t, [4]float64{30, 10, 35, 15}, ext)

	// union, not accumulation: overlapping envelopes and negative corners
	ext, ok = mergeEnvelopes([][4]float64{
		{30, 10, 35, 15},
		{-5, 12, 32, 20},
		{31, -2, 40, 14},
	})
	assert.True(t, ok)
	assert.Equal(t, [4]float64{-5, -2, 40, 20}, ext)
}

func TestSRSUndetectable(t *testing.T) {
	assert.True(t, srsUndetectable("", nil))
	assert.True(t, srsUndetectable("  ", nil))
	assert.True(t, srsUndetectable("GEOGCS[...]", errors.New("export failed")))
	assert.False(t, srsUndetectable(`GEOGCS["WGS 84",DATUM["WGS_1984"]]`, nil))
}

func TestResolveExtentNoSource(t *testing.T) {
	cfg := validConfig()
	cfg.LatLims, cfg.LonLims = nil, nil
	_, err := ResolveExtent(cfg, zap.NewNop())
	var ce ConfigError
	assert.True(t, errors.As(err, &ce))
}
