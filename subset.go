package gistool

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	"github.com/google/uuid"
)

// gdalCacheMax is the in-memory cache budget handed to the crop operation.
const gdalCacheMax = "GDAL_CACHEMAX=512"

// OutputPath is the destination of the cropped geotiff for one pair: under
// the output dir when final geotiffs were requested, under the cache dir
// otherwise.
func OutputPath(cfg RunConfig, variable string, year int) string {
	base := cfg.CacheDir
	if cfg.WriteFinalGeotiff {
		base = cfg.OutputDir
	}
	return filepath.Join(base, variable, fmt.Sprintf("%s%d.tif", cfg.OutputPrefix, year))
}

func projwinSwitches(b BoundingBox) []string {
	w := b.ProjWin()
	return []string{
		"-projwin",
		fmt.Sprintf("%g", w[0]),
		fmt.Sprintf("%g", w[1]),
		fmt.Sprintf("%g", w[2]),
		fmt.Sprintf("%g", w[3]),
	}
}

// crop cuts the reprojected mosaic down to the bounding box and writes a
// compressed BigTIFF. The output is written to a temporary name and renamed
// into place so an aborted run never leaves a truncated deliverable.
func (r *Runner) crop(p Pair, src string, box BoundingBox) (string, error) {
	dst := OutputPath(r.cfg, p.Variable, p.Year)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	tmp := fmt.Sprintf("%s.%s.tmp", dst, uuid.New().String()[:8])

	sds, err := godal.Open(src, godal.RasterOnly())
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer sds.Close()

	switches := projwinSwitches(box)
	switches = append(switches, r.translateSwitches...)
	dds, err := sds.Translate(tmp, switches,
		godal.CreationOption("COMPRESS=DEFLATE", "BIGTIFF=YES", "TILED=YES"),
		godal.ConfigOption(gdalCacheMax),
		godal.GTiff)
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("translate %s: %w", src, err)
	}
	if err := dds.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := verifyTIFF(tmp); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("verify %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", dst, err)
	}
	return dst, nil
}

// verifyTIFF checks that a produced file structurally parses as a TIFF or
// BigTIFF with at least one image directory.
func verifyTIFF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	tif, err := tiff.Parse(f, nil, nil)
	if err != nil {
		return err
	}
	if len(tif.IFDs()) == 0 {
		return fmt.Errorf("no image directories")
	}
	return nil
}
