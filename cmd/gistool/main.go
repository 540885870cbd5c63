package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	"github.com/airbusgeo/osio/gcs"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dlhogan97/gistool"
)

var logger *zap.Logger

var (
	datasetDir   string
	outputDir    string
	variableList string
	crs          int
	startDate    string
	endDate      string
	latLims      string
	lonLims      string
	shapeFile    string
	fid          string
	printGeotiff bool
	statList     string
	includeNA    bool
	quantileList string
	prefix       string
	cacheDir     string
	libPath      string

	verbose      bool
	jobs         int
	keepCache    bool
	subdataset   int
	statsTimeout time.Duration
	warpSw       string
	translateSw  string
	blocksize    string
	numBlocks    int
)

var rootCmd = &cobra.Command{
	Use:   "gistool",
	Short: "subset MODIS granules into per-variable per-year geotiffs",
	Args:  cobra.NoArgs,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger = newZap(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		_ = logger.Sync()
	},

	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		// argument errors above still print usage; past this point
		// failures are operational and the help text is just noise
		cmd.SilenceUsage = true

		if err := setupRemote(cmd.Context()); err != nil {
			return err
		}
		caps := gistool.Preflight()
		logger.Info("toolchain capabilities", zap.Stringer("drivers", caps))
		if err := caps.Check(cfg); err != nil {
			return err
		}

		var opts []gistool.RunnerOption
		if warpSw != "" {
			sw, err := shellwords.Parse(warpSw)
			if err != nil {
				return fmt.Errorf("invalid warp-switches: %w", err)
			}
			opts = append(opts, gistool.WithWarpSwitches(sw))
		}
		if translateSw != "" {
			sw, err := shellwords.Parse(translateSw)
			if err != nil {
				return fmt.Errorf("invalid translate-switches: %w", err)
			}
			opts = append(opts, gistool.WithTranslateSwitches(sw))
		}

		runner, err := gistool.NewRunner(cfg, logger, opts...)
		if err != nil {
			return err
		}
		report, err := runner.Run(cmd.Context())
		if report != nil {
			if yb, yerr := report.YAML(); yerr == nil {
				fmt.Println(string(yb))
			}
		}
		return err
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&datasetDir, "dataset-dir", "i", "", "root directory of raw granules")
	pf.StringVarP(&outputDir, "output-dir", "o", "", "directory for final deliverables")
	pf.StringVarP(&variableList, "variable", "v", "", "comma separated list of variables")
	pf.IntVarP(&crs, "crs", "r", 0, "target EPSG code")
	pf.StringVarP(&startDate, "start-date", "s", "", "start date (YYYY-MM-DD or YYYY)")
	pf.StringVarP(&endDate, "end-date", "e", "", "end date (YYYY-MM-DD or YYYY)")
	pf.StringVarP(&latLims, "lat-lims", "l", "", "latitude limits, \"min,max\"")
	pf.StringVarP(&lonLims, "lon-lims", "n", "", "longitude limits, \"min,max\"")
	pf.StringVarP(&shapeFile, "shape-file", "f", "", "vector boundary file, overrides explicit limits")
	pf.StringVarP(&fid, "fid", "F", "", "boundary feature id filter for statistics")
	pf.BoolVarP(&printGeotiff, "print-geotiff", "t", false, "write final geotiffs to the output directory")
	pf.StringVarP(&statList, "stat", "a", "", "comma separated list of zonal statistics")
	pf.BoolVarP(&includeNA, "include-na", "u", false, "include NA pixels in statistics")
	pf.StringVarP(&quantileList, "quantile", "q", "", "comma separated quantiles in [0,1]")
	pf.StringVarP(&prefix, "prefix", "p", "", "output file prefix")
	pf.StringVarP(&cacheDir, "cache", "c", "", "scratch directory for intermediate artifacts")
	pf.StringVarP(&libPath, "lib-path", "L", "", "user library path for the statistics collaborator")

	pf.BoolVar(&verbose, "verbose", false, "verbose output")
	pf.StringVar(&blocksize, "blocksize", "512k", "gs cache blocksize")
	pf.IntVar(&numBlocks, "numblocks", 1000, "number of gs cached blocks")

	flags := rootCmd.Flags()
	flags.IntVar(&jobs, "jobs", 1, "number of (variable,year) pairs processed concurrently")
	flags.BoolVar(&keepCache, "keep-cache", false, "keep intermediate mosaics after the run")
	flags.IntVar(&subdataset, "subdataset", 1, "granule subdataset index holding the variable")
	flags.DurationVar(&statsTimeout, "timeout", 0, "per-pair statistics timeout (0 for none)")
	flags.StringVar(&warpSw, "warp-switches", "", "extra gdalwarp switches, e.g. \"-r bilinear\"")
	flags.StringVar(&translateSw, "translate-switches", "", "extra gdal_translate switches")

	for _, f := range []string{"dataset-dir", "output-dir", "variable", "crs",
		"print-geotiff", "include-na", "cache", "lib-path"} {
		cobra.CheckErr(rootCmd.MarkPersistentFlagRequired(f))
	}

	rootCmd.AddCommand(planCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newZap(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return zl
}

// setupRemote registers a gs:// VSI handler when any configured path lives in
// a bucket, so godal can read granules and boundaries straight from GCS.
func setupRemote(ctx context.Context) error {
	remote := false
	for _, p := range []string{datasetDir, shapeFile} {
		if strings.HasPrefix(p, "gs://") {
			remote = true
		}
	}
	if !remote {
		return nil
	}
	stcl, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("storage.newclient: %w", err)
	}
	gcsh, err := gcs.Handle(ctx, gcs.GCSClient(stcl))
	if err != nil {
		return fmt.Errorf("gcs.handle: %w", err)
	}
	gcsa, err := osio.NewAdapter(gcsh, osio.BlockSize(blocksize), osio.NumCachedBlocks(numBlocks))
	if err != nil {
		return fmt.Errorf("osio.new: %w", err)
	}
	if err := godal.RegisterVSIHandler("gs://", gcsa); err != nil {
		return fmt.Errorf("register osio: %w", err)
	}
	return nil
}

// buildConfig maps flag values onto a RunConfig, applying defaults.
func buildConfig() (gistool.RunConfig, error) {
	cfg := gistool.RunConfig{
		InputDir:          datasetDir,
		OutputDir:         outputDir,
		CacheDir:          cacheDir,
		Variables:         gistool.SplitList(variableList),
		TargetCRS:         crs,
		ShapefilePath:     shapeFile,
		FeatureID:         fid,
		WriteFinalGeotiff: printGeotiff,
		Stats:             gistool.SplitList(statList),
		IncludeNA:         includeNA,
		OutputPrefix:      prefix,
		LibPath:           libPath,
		SubdatasetIndex:   subdataset,
		KeepCache:         keepCache,
		Jobs:              jobs,
		StatsTimeout:      statsTimeout,
	}
	var err error
	if startDate != "" {
		if cfg.StartDate, err = gistool.ParseDate("start-date", startDate); err != nil {
			return cfg, err
		}
	}
	if endDate != "" {
		if cfg.EndDate, err = gistool.ParseDate("end-date", endDate); err != nil {
			return cfg, err
		}
	}
	if latLims != "" {
		p, err := gistool.ParsePair("lat-lims", latLims)
		if err != nil {
			return cfg, err
		}
		cfg.LatLims = &p
	}
	if lonLims != "" {
		p, err := gistool.ParsePair("lon-lims", lonLims)
		if err != nil {
			return cfg, err
		}
		cfg.LonLims = &p
	}
	if quantileList != "" {
		if cfg.Quantiles, err = gistool.ParseQuantiles(quantileList); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyDefaults(logger)
	return cfg, cfg.Validate()
}
