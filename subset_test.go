package gistool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputPathDestination(t *testing.T) {
	cfg := validConfig()
	cfg.OutputPrefix = "modis_"

	cfg.WriteFinalGeotiff = true
	assert.Equal(t, filepath.Join("/out", "v", "modis_2012.tif"), OutputPath(cfg, "v", 2012))

	cfg.WriteFinalGeotiff = false
	assert.Equal(t, filepath.Join("/cache", "v", "modis_2012.tif"), OutputPath(cfg, "v", 2012))
}

func TestProjwinSwitches(t *testing.T) {
	b := BoundingBox{LatMin: 10, LatMax: 20, LonMin: 30, LonMax: 40}
	assert.Equal(t, []string{"-projwin", "30", "20", "40", "10"}, projwinSwitches(b))

	b = BoundingBox{LatMin: -1.5, LatMax: 2.25, LonMin: -30, LonMax: 0}
	assert.Equal(t, []string{"-projwin", "-30", "2.25", "0", "-1.5"}, projwinSwitches(b))
}

func TestArtifactPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("c", "v", "2012.vrt"), MosaicPath("c", "v", 2012))
	assert.Equal(t, filepath.Join("c", "v", "2012_4326.vrt"), WarpedPath("c", "v", 2012, 4326))
}
