package gistool

import (
	"fmt"
	"strings"

	"github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// BoundingBox is a geographic window in EPSG:4326, normalized so that
// LatMin <= LatMax and LonMin <= LonMax.
type BoundingBox struct {
	LatMin float64 `json:"latMin"`
	LatMax float64 `json:"latMax"`
	LonMin float64 `json:"lonMin"`
	LonMax float64 `json:"lonMax"`
}

// ProjWin returns the crop window in the corner order gdal_translate expects
// for -projwin: upper-left x, upper-left y, lower-right x, lower-right y.
func (b BoundingBox) ProjWin() [4]float64 {
	return [4]float64{b.LonMin, b.LatMax, b.LonMax, b.LatMin}
}

func sortPair(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

func boxFromPairs(lat, lon [2]float64) BoundingBox {
	var b BoundingBox
	b.LatMin, b.LatMax = sortPair(lat[0], lat[1])
	b.LonMin, b.LonMax = sortPair(lon[0], lon[1])
	return b
}

// ResolveExtent determines the geographic window of the run: the boundary
// file's extent reprojected to EPSG:4326 when one is configured, the explicit
// lat/lon limits otherwise.
func ResolveExtent(cfg RunConfig, log *zap.Logger) (BoundingBox, error) {
	if cfg.ShapefilePath != "" {
		return shapefileExtent(cfg.ShapefilePath, log)
	}
	if cfg.LatLims == nil || cfg.LonLims == nil {
		return BoundingBox{}, ConfigError{Field: "lat-lims/lon-lims", Msg: "required when no shape file is given"}
	}
	return boxFromPairs(*cfg.LatLims, *cfg.LonLims), nil
}

func shapefileExtent(path string, log *zap.Logger) (BoundingBox, error) {
	ds, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return BoundingBox{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()
	layers := ds.Layers()
	if len(layers) == 0 {
		return BoundingBox{}, fmt.Errorf("no layers in %s", path)
	}
	layer := layers[0]

	// godal wrappers are never nil, even around a missing geometry, so the
	// only safe test is an affirmative emptiness check
	var envs [][4]float64
	layer.ResetReading()
	for {
		feat := layer.NextFeature()
		if feat == nil {
			break
		}
		geom := feat.Geometry()
		if geom.Empty() {
			feat.Close()
			continue
		}
		env, err := geom.Bounds()
		feat.Close()
		if err != nil {
			continue
		}
		envs = append(envs, env)
	}
	native, ok := mergeEnvelopes(envs)
	if !ok {
		return BoundingBox{}, fmt.Errorf("no features with geometry in %s", path)
	}

	// Layer.SpatialRef always returns a wrapper; a boundary without
	// projection info only shows through an unexportable WKT
	src := layer.SpatialRef()
	wkt, werr := src.WKT()
	if srsUndetectable(wkt, werr) {
		log.Warn("boundary file has no detectable projection, assuming WGS84 geographic",
			zap.String("file", path))
		wgs84, err := godal.NewSpatialRefFromEPSG(4326)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("create wgs84 srs: %w", err)
		}
		defer wgs84.Close()
		src = wgs84
	}
	dst, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return BoundingBox{}, fmt.Errorf("create epsg:4326 srs: %w", err)
	}
	defer dst.Close()

	trn, err := godal.NewTransform(src, dst)
	if err != nil {
		return BoundingBox{}, fmt.Errorf("create transform: %w", err)
	}
	defer trn.Close()
	// transform lower-left and upper-right corners of the native extent
	xs := []float64{native[0], native[2]}
	ys := []float64{native[1], native[3]}
	if err := trn.TransformEx(xs, ys, nil, nil); err != nil {
		return BoundingBox{}, fmt.Errorf("transform extent of %s: %w", path, err)
	}
	return boxFromPairs([2]float64{ys[0], ys[1]}, [2]float64{xs[0], xs[1]}), nil
}

// mergeEnvelopes unions per-feature envelopes (minx,miny,maxx,maxy) into the
// layer's native extent. ok is false when no feature contributed one.
func mergeEnvelopes(envs [][4]float64) (ext [4]float64, ok bool) {
	if len(envs) == 0 {
		return ext, false
	}
	ext = envs[0]
	for _, e := range envs[1:] {
		if e[0] < ext[0] {
			ext[0] = e[0]
		}
		if e[1] < ext[1] {
			ext[1] = e[1]
		}
		if e[2] > ext[2] {
			ext[2] = e[2]
		}
		if e[3] > ext[3] {
			ext[3] = e[3]
		}
	}
	return ext, true
}

// srsUndetectable decides whether a layer spatial reference is usable from
// its exported WKT: a reference wrapping no projection info exports empty or
// errors out.
func srsUndetectable(wkt string, err error) bool {
	return err != nil || strings.TrimSpace(wkt) == ""
}
