package gistool

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

var errNoUsableGranules = errors.New("no usable granules")

// MosaicPath is the virtual mosaic artifact for one pair, before
// reprojection.
func MosaicPath(cacheDir, variable string, year int) string {
	return filepath.Join(cacheDir, variable, fmt.Sprintf("%d.vrt", year))
}

// WarpedPath is the reprojected mosaic artifact for one pair.
func WarpedPath(cacheDir, variable string, year, crs int) string {
	return filepath.Join(cacheDir, variable, fmt.Sprintf("%d_%d.vrt", year, crs))
}

// subdatasetName resolves the embedded layer of a granule that holds the
// variable of interest. Granules without subdatasets are used as-is.
func subdatasetName(granule string, idx int) (string, error) {
	ds, err := godal.Open(granule, godal.RasterOnly())
	if err != nil {
		return "", fmt.Errorf("open %s: %w", granule, err)
	}
	defer ds.Close()
	md := ds.Metadatas(godal.Domain("SUBDATASETS"))
	if len(md) == 0 {
		return granule, nil
	}
	name, ok := md[fmt.Sprintf("SUBDATASET_%d_NAME", idx)]
	if !ok {
		return "", fmt.Errorf("%s: no subdataset %d", granule, idx)
	}
	return name, nil
}

// buildMosaic assembles the granules of one pair into a single virtual
// mosaic referencing each granule's selected layer, preferring the highest
// available resolution. Granules whose layer cannot be resolved are excluded
// with a warning; errNoUsableGranules is returned when none survive.
func (r *Runner) buildMosaic(p Pair, granules []string) (string, error) {
	sources := make([]string, 0, len(granules))
	for _, g := range granules {
		name, err := subdatasetName(g, r.cfg.SubdatasetIndex)
		if err != nil {
			r.log.Warn("excluding granule",
				zap.String("variable", p.Variable), zap.Int("year", p.Year), zap.Error(err))
			continue
		}
		sources = append(sources, name)
	}
	if len(sources) == 0 {
		return "", errNoUsableGranules
	}
	vrt := MosaicPath(r.cfg.CacheDir, p.Variable, p.Year)
	ds, err := godal.BuildVRT(vrt, sources, []string{"-resolution", "highest"})
	if err != nil {
		return "", fmt.Errorf("build vrt %s: %w", vrt, err)
	}
	if err := ds.Close(); err != nil {
		return "", fmt.Errorf("close vrt %s: %w", vrt, err)
	}
	return vrt, nil
}

// reproject warps a mosaic into the target CRS as a second virtual artifact.
func (r *Runner) reproject(p Pair, vrt string) (string, error) {
	dst := WarpedPath(r.cfg.CacheDir, p.Variable, p.Year, r.cfg.TargetCRS)
	ds, err := godal.Open(vrt, godal.RasterOnly())
	if err != nil {
		return "", fmt.Errorf("open %s: %w", vrt, err)
	}
	defer ds.Close()
	switches := []string{
		"-t_srs", fmt.Sprintf("epsg:%d", r.cfg.TargetCRS),
		"-of", "VRT",
		"-overwrite",
	}
	switches = append(switches, r.warpSwitches...)
	wds, err := ds.Warp(dst, switches)
	if err != nil {
		return "", fmt.Errorf("warp %s to epsg:%d: %w", vrt, r.cfg.TargetCRS, err)
	}
	if err := wds.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dst, err)
	}
	return dst, nil
}
