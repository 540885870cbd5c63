package gistool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCheckSwitches(t *testing.T) {
	assert.NoError(t, CheckSwitches([]string{"-r", "bilinear", "-wm", "500"}))
	for _, bad := range []string{"-of", "-projwin", "-srcwin", "-te", "-t_srs", "-outsize"} {
		assert.Error(t, CheckSwitches([]string{"-r", "near", bad, "x"}), bad)
	}
}

func TestNewRunnerRejectsBadSwitches(t *testing.T) {
	_, err := NewRunner(validConfig(), zap.NewNop(), WithWarpSwitches([]string{"-t_srs", "epsg:4326"}))
	assert.Error(t, err)
	_, err = NewRunner(validConfig(), zap.NewNop(), WithTranslateSwitches([]string{"-projwin", "0", "0", "1", "1"}))
	assert.Error(t, err)
	_, err = NewRunner(validConfig(), zap.NewNop(), WithWarpSwitches([]string{"-r", "bilinear"}))
	assert.NoError(t, err)
}

func TestCleanCache(t *testing.T) {
	cache := t.TempDir()
	cfg := validConfig()
	cfg.CacheDir = cache
	cfg.TargetCRS = 4326

	keep := filepath.Join(cache, "v", "modis_2012.tif")
	writeGranule(t, filepath.Join(cache, "v", "2012.vrt"))
	writeGranule(t, filepath.Join(cache, "v", "2012_4326.vrt"))
	writeGranule(t, keep)

	r, err := NewRunner(cfg, zap.NewNop())
	assert.NoError(t, err)
	r.cleanCache([]Pair{{Variable: "v", Year: 2012}})

	_, err = os.Stat(filepath.Join(cache, "v", "2012.vrt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(cache, "v", "2012_4326.vrt"))
	assert.True(t, os.IsNotExist(err))
	// outputs living in the cache survive cleanup
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}
