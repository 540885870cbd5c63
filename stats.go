package gistool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"
	"go.uber.org/zap"
)

// Command and script used to launch the zonal statistics collaborator. Both
// are looked up on each invocation so callers can point them elsewhere.
var (
	StatsCommand = "Rscript"
	StatsScript  = "extract-stats.R"
)

// statsArgs assembles the collaborator's fixed positional argument list:
// temp-install path, tool cache path, package archive path, virtual-env path
// (twice), lockfile path, raster, boundary, output CSV, statistics list,
// include-NA flag, quantile list, optional feature id.
func statsArgs(cfg RunConfig, script, raster, csv string) []string {
	lib := cfg.LibPath
	args := []string{
		script,
		filepath.Join(lib, "tmp_install"),
		filepath.Join(lib, "cache"),
		filepath.Join(lib, "renv.tar.gz"),
		filepath.Join(lib, "renv"),
		filepath.Join(lib, "renv"),
		filepath.Join(lib, "renv.lock"),
		raster,
		cfg.ShapefilePath,
		csv,
		strings.Join(cfg.Stats, ","),
		strings.ToUpper(strconv.FormatBool(cfg.IncludeNA)),
		joinFloats(cfg.Quantiles),
	}
	if cfg.FeatureID != "" {
		args = append(args, cfg.FeatureID)
	}
	return args
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// StatsCSVPath is the deliverable of the statistics stage for one pair; the
// collaborator's combined output stream goes to the matching .log path.
func StatsCSVPath(cfg RunConfig, variable string, year int) string {
	return filepath.Join(cfg.OutputDir, variable,
		fmt.Sprintf("%sstats_%s_%d.csv", cfg.OutputPrefix, variable, year))
}

// runStats invokes the external zonal statistics routine for one pair. The
// child gets the user library path exported in its environment and its output
// redirected to a per-pair log file. A non-zero exit is an error for this
// stage only.
func (r *Runner) runStats(ctx context.Context, p Pair, raster string) (string, error) {
	csv := StatsCSVPath(r.cfg, p.Variable, p.Year)
	logPath := strings.TrimSuffix(csv, ".csv") + ".log"
	args := statsArgs(r.cfg, StatsScript, raster, csv)

	if r.cfg.StatsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.StatsTimeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, StatsCommand, args...)
	cmd.Env = append(os.Environ(), "R_LIBS_USER="+r.cfg.LibPath)

	lf, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", logPath, err)
	}
	defer lf.Close()
	cmd.Stdout = lf
	cmd.Stderr = lf

	r.log.Debug("invoking statistics collaborator",
		zap.String("variable", p.Variable), zap.Int("year", p.Year),
		zap.String("command", shellescape.QuoteCommand(append([]string{StatsCommand}, args...))))
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s %d: %w (see %s)", StatsCommand, p.Variable, p.Year, err, logPath)
	}
	return csv, nil
}
