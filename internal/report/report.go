// Package report assembles a run's verdict and metadata into the persisted
// structured document and the human-readable rendering.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/saykai/saykai/internal/policy"
)

// GateName identifies this gate in structured reports.
const GateName = "saykai"

// Meta carries whatever run metadata is known at build time. Fields may be
// zero when the run aborted early; Build still produces a complete report.
type Meta struct {
	SpecVersion    string
	PRNumber       int
	PRTitle        string
	Labels         []string
	Base           string
	Head           string
	ChangedFiles   []string
	EvaluatedCount int
	RequiredLabel  string
}

// PullRequest is the PR identity block of the structured report.
type PullRequest struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
}

// Report is the structured form persisted for every run. It contains no
// non-deterministic fields: identical inputs produce identical documents.
type Report struct {
	Gate           string           `json:"gate"`
	SpecVersion    string           `json:"spec_version"`
	PullRequest    PullRequest      `json:"pull_request"`
	Base           string           `json:"base"`
	Head           string           `json:"head"`
	ChangedFiles   []string         `json:"changed_files"`
	ChangedCount   int              `json:"changed_count"`
	EvaluatedCount int              `json:"evaluated_count"`
	RequiredLabel  string           `json:"required_label"`
	Passed         bool             `json:"passed"`
	Failures       []policy.Failure `json:"failures"`
}

// Build assembles the report. It never fails: missing metadata is filled
// with neutral values so even a fatal-abort run yields an inspectable
// artifact.
func Build(meta Meta, v *policy.Verdict) *Report {
	version := meta.SpecVersion
	if version == "" {
		version = "unknown"
	}

	labels := meta.Labels
	if labels == nil {
		labels = []string{}
	}
	changed := meta.ChangedFiles
	if changed == nil {
		changed = []string{}
	}
	failures := v.Failures
	if failures == nil {
		failures = []policy.Failure{}
	}

	return &Report{
		Gate:        GateName,
		SpecVersion: version,
		PullRequest: PullRequest{
			Number: meta.PRNumber,
			Title:  meta.PRTitle,
			Labels: labels,
		},
		Base:           meta.Base,
		Head:           meta.Head,
		ChangedFiles:   changed,
		ChangedCount:   len(changed),
		EvaluatedCount: meta.EvaluatedCount,
		RequiredLabel:  meta.RequiredLabel,
		Passed:         v.Passed,
		Failures:       failures,
	}
}

// WriteJSON writes the indented structured document.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report JSON: %w", err)
	}
	return nil
}

// WriteFiles persists the report pair (report.json, report.txt) under dir,
// creating it if needed.
func (r *Report) WriteFiles(dir string) (jsonPath, textPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}

	jsonPath = filepath.Join(dir, "report.json")
	f, err := os.Create(jsonPath)
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", jsonPath, err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return "", "", err
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close %s: %w", jsonPath, err)
	}

	textPath = filepath.Join(dir, "report.txt")
	tf, err := os.Create(textPath)
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", textPath, err)
	}
	Render(tf, r, false)
	if err := tf.Close(); err != nil {
		return "", "", fmt.Errorf("close %s: %w", textPath, err)
	}

	return jsonPath, textPath, nil
}
