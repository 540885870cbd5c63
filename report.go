package gistool

import (
	"sigs.k8s.io/yaml"
)

// Stage names the workflow step a pair failed at.
type Stage string

const (
	StageDiscover  Stage = "discover"
	StageMosaic    Stage = "mosaic"
	StageReproject Stage = "reproject"
	StageSubset    Stage = "subset"
	StageStats     Stage = "stats"
)

// PairResult records the outcome of one (variable, year) pair. A failed
// stage does not roll back artifacts produced by earlier stages.
type PairResult struct {
	Variable    string `json:"variable"`
	Year        int    `json:"year"`
	Skipped     bool   `json:"skipped,omitempty"`
	FailedStage Stage  `json:"failedStage,omitempty"`
	Error       string `json:"error,omitempty"`
	Output      string `json:"output,omitempty"`
	StatsCSV    string `json:"statsCsv,omitempty"`
}

// Report summarizes a whole run.
type Report struct {
	BoundingBox BoundingBox  `json:"boundingBox"`
	Pairs       []PairResult `json:"pairs"`
}

// Failed returns the pairs that failed at some stage, in run order.
func (r *Report) Failed() []PairResult {
	var out []PairResult
	for _, p := range r.Pairs {
		if p.FailedStage != "" {
			out = append(out, p)
		}
	}
	return out
}

// YAML renders the report for terminal output.
func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}
