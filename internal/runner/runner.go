// Package runner drives one gate run: load spec, resolve the event, diff,
// scan, evaluate, report.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/saykai/saykai/internal/diffscan"
	"github.com/saykai/saykai/internal/event"
	"github.com/saykai/saykai/internal/policy"
	"github.com/saykai/saykai/internal/report"
	"github.com/saykai/saykai/internal/spec"
	"github.com/saykai/saykai/internal/store"
)

// GitClient is the VCS collaborator the runner needs.
type GitClient interface {
	Fetch(ctx context.Context, base, head string)
	DiffRange(ctx context.Context, base, head string) (string, error)
	ChangedFiles(ctx context.Context, base, head string) ([]string, error)
}

// Options configures one gate run.
type Options struct {
	SpecPath      string
	EventPath     string
	RequiredLabel string

	// MaxFiles is a hard cap on evaluation: only the first MaxFiles changed
	// files (diff order) are scanned for patterns and considered for
	// protected paths. Zero means no cap. The report records both the full
	// changed count and the evaluated count.
	MaxFiles int

	OutDir      string
	SummaryPath string
	Colored     bool

	Git     GitClient
	History store.Store // optional, nil disables run history
	Logger  *slog.Logger
	Stdout  io.Writer
}

// Runner executes the sequential gate pipeline.
type Runner struct {
	opts Options
}

// New returns a Runner for the given options.
func New(opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Runner{opts: opts}
}

// Run executes the pipeline and returns the process exit code: 0 on a
// passing verdict or a non-applicable event, 1 on a blocked verdict or any
// fatal condition.
func (r *Runner) Run(ctx context.Context) int {
	log := r.opts.Logger

	evt, err := event.Load(r.opts.EventPath)
	if err != nil {
		log.Error("cannot read event payload", "path", r.opts.EventPath, "error", err)
		return 1
	}
	if evt == nil {
		log.Info("not a pull-request event, skipping evaluation")
		return 0
	}
	log.Info("evaluating pull request", "number", evt.Number, "base", evt.BaseSHA, "head", evt.HeadSHA)

	meta := report.Meta{
		PRNumber:      evt.Number,
		PRTitle:       evt.Title,
		Labels:        evt.Labels,
		Base:          evt.BaseSHA,
		Head:          evt.HeadSHA,
		RequiredLabel: r.opts.RequiredLabel,
	}
	verdict := policy.NewVerdict()

	ruleSet, err := spec.Load(r.opts.SpecPath)
	if err != nil {
		if errors.Is(err, spec.ErrNotFound) {
			verdict.AddFatal(policy.FatalMissingSpec, err.Error())
		} else {
			verdict.AddFatal(policy.FatalSchema, err.Error())
		}
		log.Error("spec load failed", "path", r.opts.SpecPath, "error", err)
		return r.finish(ctx, meta, verdict)
	}
	meta.SpecVersion = ruleSet.Version
	log.Info("spec loaded", "version", ruleSet.Version,
		"pattern_rules", len(ruleSet.PatternRules), "path_rules", len(ruleSet.PathRules))

	r.opts.Git.Fetch(ctx, evt.BaseSHA, evt.HeadSHA)

	changed, err := r.opts.Git.ChangedFiles(ctx, evt.BaseSHA, evt.HeadSHA)
	if err != nil {
		verdict.AddFatal(policy.FatalRange, err.Error())
		log.Error("cannot list changed files", "error", err)
		return r.finish(ctx, meta, verdict)
	}
	meta.ChangedFiles = changed

	diff, err := r.opts.Git.DiffRange(ctx, evt.BaseSHA, evt.HeadSHA)
	if err != nil {
		verdict.AddFatal(policy.FatalRange, err.Error())
		log.Error("cannot diff range", "error", err)
		return r.finish(ctx, meta, verdict)
	}

	evaluated := changed
	if r.opts.MaxFiles > 0 && len(changed) > r.opts.MaxFiles {
		evaluated = changed[:r.opts.MaxFiles]
		log.Warn("file cap reached, evaluating a subset", "changed", len(changed), "cap", r.opts.MaxFiles)
	}
	meta.EvaluatedCount = len(evaluated)

	lines := diffscan.AddedLines(diff)
	if len(evaluated) < len(changed) {
		lines = filterLines(lines, evaluated)
	}
	log.Info("diff scanned", "changed_files", len(changed), "added_lines", len(lines))

	for _, hit := range policy.CheckPatterns(ruleSet, lines) {
		verdict.AddHit(hit)
	}
	for _, v := range policy.CheckProtectedPaths(ruleSet, evaluated, evt.Labels, r.opts.RequiredLabel) {
		verdict.AddViolation(v)
	}

	return r.finish(ctx, meta, verdict)
}

// finish builds and persists the report pair, renders it, and maps the
// verdict to an exit code. Called on every path, including fatal aborts.
func (r *Runner) finish(ctx context.Context, meta report.Meta, verdict *policy.Verdict) int {
	log := r.opts.Logger
	rep := report.Build(meta, verdict)

	code := 0
	if !verdict.Passed {
		code = 1
	}

	if r.opts.OutDir != "" {
		jsonPath, textPath, err := rep.WriteFiles(r.opts.OutDir)
		if err != nil {
			log.Error("cannot persist report", "error", err)
			code = 1
		} else {
			log.Info("report written", "json", jsonPath, "text", textPath)
		}
	}

	if r.opts.SummaryPath != "" {
		if err := appendSummary(r.opts.SummaryPath, rep); err != nil {
			log.Warn("cannot write run summary", "error", err)
		}
	}

	report.Render(r.opts.Stdout, rep, r.opts.Colored)

	if r.opts.History != nil {
		if err := r.saveRun(ctx, rep); err != nil {
			log.Warn("cannot record run history", "error", err)
		}
	}

	return code
}

func (r *Runner) saveRun(ctx context.Context, rep *report.Report) error {
	var buf bytes.Buffer
	if err := rep.WriteJSON(&buf); err != nil {
		return err
	}

	return r.opts.History.SaveRun(ctx, &store.Run{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		PRNumber:     rep.PullRequest.Number,
		PRTitle:      rep.PullRequest.Title,
		Base:         rep.Base,
		Head:         rep.Head,
		Passed:       rep.Passed,
		FailureCount: len(rep.Failures),
		ReportJSON:   buf.String(),
	})
}

func appendSummary(path string, rep *report.Report) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open summary file: %w", err)
	}
	defer f.Close()
	report.Markdown(f, rep)
	return nil
}

func filterLines(lines []diffscan.AddedLine, files []string) []diffscan.AddedLine {
	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f] = true
	}
	var out []diffscan.AddedLine
	for _, l := range lines {
		if keep[l.File] {
			out = append(out, l)
		}
	}
	return out
}
