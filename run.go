// Package gistool subsets and aggregates MODIS-format HDF granules into
// per-variable, per-year geotiffs, optionally computing zonal statistics
// against a vector boundary.
package gistool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tbonfort/gobs"
	"go.uber.org/zap"
)

// Runner executes the whole workflow for one RunConfig.
type Runner struct {
	cfg RunConfig
	log *zap.Logger

	warpSwitches      []string
	translateSwitches []string
}

type RunnerOption func(r *Runner) error

// WithWarpSwitches appends extra gdalwarp switches to the reprojection step.
func WithWarpSwitches(sw []string) RunnerOption {
	return func(r *Runner) error {
		if err := CheckSwitches(sw); err != nil {
			return err
		}
		r.warpSwitches = sw
		return nil
	}
}

// WithTranslateSwitches appends extra gdal_translate switches to the crop
// step.
func WithTranslateSwitches(sw []string) RunnerOption {
	return func(r *Runner) error {
		if err := CheckSwitches(sw); err != nil {
			return err
		}
		r.translateSwitches = sw
		return nil
	}
}

// CheckSwitches rejects pass-through gdal switches that would fight the
// windows, formats and reference systems the workflow manages itself.
func CheckSwitches(sw []string) error {
	for _, s := range sw {
		switch s {
		case "-of", "-projwin", "-srcwin", "-te", "-t_srs", "-s_srs", "-outsize", "-tr", "-a_ullr":
			return fmt.Errorf("%s switch not allowed", s)
		}
	}
	return nil
}

func NewRunner(cfg RunConfig, log *zap.Logger, opts ...RunnerOption) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SubdatasetIndex < 1 {
		cfg.SubdatasetIndex = 1
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	r := &Runner{cfg: cfg, log: log}
	for _, o := range opts {
		if err := o(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run sequences the workflow: directory lifecycle, extent resolution, then
// mosaic → reproject → subset → stats per (variable, year) pair. Pair
// failures are recorded and do not abort the run; only configuration errors
// do. The run is abortable between pairs through ctx.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	box, err := ResolveExtent(r.cfg, r.log)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{r.cfg.CacheDir, r.cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	for _, v := range r.cfg.Variables {
		for _, base := range []string{r.cfg.OutputDir, r.cfg.CacheDir} {
			if err := os.MkdirAll(filepath.Join(base, v), 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", filepath.Join(base, v), err)
			}
		}
	}

	pairs := Pairs(r.cfg.Variables, r.cfg.YearRange())
	report := &Report{BoundingBox: box, Pairs: make([]PairResult, len(pairs))}
	projwin := box.ProjWin()
	r.log.Info("starting run",
		zap.Int("pairs", len(pairs)), zap.Int("jobs", r.cfg.Jobs),
		zap.Float64s("projwin", projwin[:]))

	// pairs own disjoint <dir>/<variable>/<year>* write sets, so they can
	// run concurrently without further locking
	pool := gobs.NewPool(r.cfg.Jobs)
	batch := pool.Batch()
	for i, p := range pairs {
		i, p := i, p
		batch.Submit(func() error {
			report.Pairs[i] = r.runPair(ctx, p, box)
			return nil
		})
	}
	if err := batch.Wait(); err != nil {
		return report, err
	}
	if !r.cfg.KeepCache {
		r.cleanCache(pairs)
	}
	for _, f := range report.Failed() {
		r.log.Warn("pair failed", zap.String("variable", f.Variable),
			zap.Int("year", f.Year), zap.String("stage", string(f.FailedStage)))
	}
	r.log.Info("run complete", zap.Int("failed", len(report.Failed())))
	return report, ctx.Err()
}

func (r *Runner) runPair(ctx context.Context, p Pair, box BoundingBox) PairResult {
	res := PairResult{Variable: p.Variable, Year: p.Year}
	fail := func(stage Stage, err error) PairResult {
		r.log.Error("stage failed", zap.String("variable", p.Variable),
			zap.Int("year", p.Year), zap.String("stage", string(stage)), zap.Error(err))
		res.FailedStage = stage
		res.Error = err.Error()
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Skipped = true
		res.Error = err.Error()
		return res
	}

	granules, err := Granules(r.cfg.InputDir, p.Variable, p.Year)
	if err != nil {
		return fail(StageDiscover, err)
	}
	if len(granules) == 0 {
		r.log.Warn("no granules found, skipping year",
			zap.String("variable", p.Variable), zap.Int("year", p.Year),
			zap.String("dir", GranuleDir(r.cfg.InputDir, p.Variable, p.Year)))
		res.Skipped = true
		return res
	}

	vrt, err := r.buildMosaic(p, granules)
	if err != nil {
		if errors.Is(err, errNoUsableGranules) {
			r.log.Warn("all granules unusable, skipping year",
				zap.String("variable", p.Variable), zap.Int("year", p.Year))
			res.Skipped = true
			return res
		}
		return fail(StageMosaic, err)
	}
	warped, err := r.reproject(p, vrt)
	if err != nil {
		return fail(StageReproject, err)
	}
	out, err := r.crop(p, warped, box)
	if err != nil {
		return fail(StageSubset, err)
	}
	res.Output = out

	if r.cfg.StatsEnabled() {
		csv, err := r.runStats(ctx, p, out)
		if err != nil {
			return fail(StageStats, err)
		}
		res.StatsCSV = csv
	}
	return res
}

// cleanCache removes the intermediate mosaic artifacts. Outputs written into
// the cache when final geotiffs were not requested are left alone.
func (r *Runner) cleanCache(pairs []Pair) {
	for _, p := range pairs {
		for _, f := range []string{
			MosaicPath(r.cfg.CacheDir, p.Variable, p.Year),
			WarpedPath(r.cfg.CacheDir, p.Variable, p.Year, r.cfg.TargetCRS),
		} {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				r.log.Warn("cache cleanup", zap.String("file", f), zap.Error(err))
			}
		}
	}
}
