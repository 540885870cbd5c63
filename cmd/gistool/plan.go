package main

import (
	"fmt"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	k8sv1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	k8smeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	wfv1 "github.com/argoproj/argo-workflows/v3/pkg/apis/workflow/v1alpha1"

	"github.com/dlhogan97/gistool"
)

var (
	planImage string
	planShell bool
	planJobID string
)

func init() {
	planCmd.Flags().StringVar(&planImage, "image", "", "container image providing the gistool binary")
	planCmd.Flags().BoolVar(&planShell, "shell", false, "output shell script instead of argo workflow")
	planCmd.Flags().StringVar(&planJobID, "jobID", "", "(advanced) use predefined job identifier")
}

// planCmd renders the (variable, year) grid as an Argo Workflow of single
// pair gistool invocations, one container step per pair. Pairs write
// disjoint paths so every step can run in parallel.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "emit a workflow distributing each (variable,year) pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		if planJobID == "" {
			planJobID = uuid.New().String()[:8]
		}
		if !planShell && planImage == "" {
			return fmt.Errorf("--image is required unless --shell is set")
		}
		cmd.SilenceUsage = true

		pairs := gistool.Pairs(cfg.Variables, cfg.YearRange())
		commands := make([][]string, len(pairs))
		for i, p := range pairs {
			commands[i] = pairCommand(cfg, p)
		}

		if planShell {
			for _, c := range commands {
				fmt.Println(shellescape.QuoteCommand(c))
			}
			return nil
		}

		wf := &wfv1.Workflow{
			ObjectMeta: k8smeta.ObjectMeta{
				GenerateName: "gistool-" + planJobID + "-",
			},
			TypeMeta: k8smeta.TypeMeta{
				APIVersion: "argoproj.io/v1alpha1",
				Kind:       "Workflow",
			},
			Spec: wfv1.WorkflowSpec{
				TTLStrategy: &wfv1.TTLStrategy{
					SecondsAfterSuccess: int32Ptr(3600),
				},
				Entrypoint: "gistool",
				Templates: []wfv1.Template{
					{Name: "gistool"},
				},
			},
		}
		ps := wfv1.ParallelSteps{}
		for i, p := range pairs {
			ps.Steps = append(ps.Steps, wfv1.WorkflowStep{
				Name: fmt.Sprintf("%s-%d", sanitizeName(p.Variable), p.Year),
				Inline: &wfv1.Template{
					RetryStrategy: &wfv1.RetryStrategy{
						Limit: intOrStringPtr(5),
					},
					Container: &k8sv1.Container{
						Name:    "pair",
						Image:   planImage,
						Command: commands[i],
						Resources: k8sv1.ResourceRequirements{
							Requests: k8sv1.ResourceList{
								k8sv1.ResourceCPU:    resource.MustParse("1"),
								k8sv1.ResourceMemory: resource.MustParse("2G"),
							},
						},
					},
				},
			})
		}
		wf.Spec.Templates[0].Steps = append(wf.Spec.Templates[0].Steps, ps)

		yb, err := yaml.Marshal(wf)
		if err != nil {
			return fmt.Errorf("marshal workflow: %w", err)
		}
		fmt.Println(string(yb))
		return nil
	},
}

// pairCommand builds a gistool invocation covering exactly one pair.
func pairCommand(cfg gistool.RunConfig, p gistool.Pair) []string {
	cmd := []string{"gistool",
		"--dataset-dir", cfg.InputDir,
		"--output-dir", cfg.OutputDir,
		"--cache", cfg.CacheDir,
		"--lib-path", cfg.LibPath,
		"--variable", p.Variable,
		"--crs", fmt.Sprintf("%d", cfg.TargetCRS),
		"--start-date", fmt.Sprintf("%d-01-01", p.Year),
		"--end-date", fmt.Sprintf("%d-12-31", p.Year),
		"--prefix", cfg.OutputPrefix,
		fmt.Sprintf("--print-geotiff=%v", cfg.WriteFinalGeotiff),
		fmt.Sprintf("--include-na=%v", cfg.IncludeNA),
		"--subdataset", fmt.Sprintf("%d", cfg.SubdatasetIndex),
	}
	if cfg.ShapefilePath != "" {
		cmd = append(cmd, "--shape-file", cfg.ShapefilePath)
	} else {
		cmd = append(cmd,
			"--lat-lims", fmt.Sprintf("%g,%g", cfg.LatLims[0], cfg.LatLims[1]),
			"--lon-lims", fmt.Sprintf("%g,%g", cfg.LonLims[0], cfg.LonLims[1]))
	}
	if len(cfg.Stats) > 0 {
		cmd = append(cmd, "--stat", strings.Join(cfg.Stats, ","))
	}
	if len(cfg.Quantiles) > 0 {
		qs := make([]string, len(cfg.Quantiles))
		for i, q := range cfg.Quantiles {
			qs[i] = fmt.Sprintf("%g", q)
		}
		cmd = append(cmd, "--quantile", strings.Join(qs, ","))
	}
	if cfg.FeatureID != "" {
		cmd = append(cmd, "--fid", cfg.FeatureID)
	}
	return cmd
}

// sanitizeName maps a variable name onto a valid workflow step name.
func sanitizeName(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, s)
}

func int32Ptr(val int32) *int32 {
	a := val
	return &a
}

func intOrStringPtr(val int) *intstr.IntOrString {
	a := intstr.FromInt(val)
	return &a
}
