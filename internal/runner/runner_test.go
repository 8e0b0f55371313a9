package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/saykai/saykai/internal/policy"
	"github.com/saykai/saykai/internal/report"
)

type fakeGit struct {
	diff    string
	files   []string
	diffErr error
	fetched bool
}

func (g *fakeGit) Fetch(context.Context, string, string) { g.fetched = true }

func (g *fakeGit) DiffRange(context.Context, string, string) (string, error) {
	return g.diff, g.diffErr
}

func (g *fakeGit) ChangedFiles(context.Context, string, string) ([]string, error) {
	if g.diffErr != nil {
		return nil, g.diffErr
	}
	return g.files, nil
}

const testSpec = `
version: "1"
rules:
  forbidden_patterns:
    - id: no-rm-rf
      pattern: "rm -rf"
      message: blocked
  protected_paths:
    - id: infra
      paths: [deploy/]
      message: infra needs approval
`

const testEvent = `{
  "pull_request": {
    "number": 42,
    "title": "Add cleanup script",
    "labels": [],
    "base": {"sha": "aaa111"},
    "head": {"sha": "bbb222"}
  }
}`

type fixture struct {
	opts   Options
	outDir string
}

func newFixture(t *testing.T, specText, eventText string, git *fakeGit) *fixture {
	t.Helper()
	dir := t.TempDir()

	specPath := filepath.Join(dir, "spec.yml")
	if specText != "" {
		if err := os.WriteFile(specPath, []byte(specText), 0644); err != nil {
			t.Fatal(err)
		}
	}
	eventPath := filepath.Join(dir, "event.json")
	if err := os.WriteFile(eventPath, []byte(eventText), 0644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "reports")
	return &fixture{
		outDir: outDir,
		opts: Options{
			SpecPath:      specPath,
			EventPath:     eventPath,
			RequiredLabel: "saykai-approved",
			MaxFiles:      200,
			OutDir:        outDir,
			Git:           git,
			Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
			Stdout:        io.Discard,
		},
	}
}

func (f *fixture) readReport(t *testing.T) *report.Report {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.outDir, "report.json"))
	if err != nil {
		t.Fatal(err)
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	return &r
}

func TestRun_BlocksOnForbiddenPattern(t *testing.T) {
	git := &fakeGit{
		files: []string{"scripts/clean.sh"},
		diff: `--- a/scripts/clean.sh
+++ b/scripts/clean.sh
@@ -11,0 +12,1 @@
+rm -rf /data
`,
	}
	f := newFixture(t, testSpec, testEvent, git)

	code := New(f.opts).Run(context.Background())
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !git.fetched {
		t.Fatal("expected a fetch before diffing")
	}

	r := f.readReport(t)
	if r.Passed {
		t.Fatal("verdict should be blocked")
	}
	if len(r.Failures) != 1 {
		t.Fatalf("failures = %+v", r.Failures)
	}
	fail := r.Failures[0]
	if fail.RuleID != "no-rm-rf" || fail.File != "scripts/clean.sh" || fail.Line != 12 {
		t.Fatalf("failure = %+v", fail)
	}
}

func TestRun_PassesOnCleanDiff(t *testing.T) {
	git := &fakeGit{
		files: []string{"docs/readme.md"},
		diff: `--- a/docs/readme.md
+++ b/docs/readme.md
@@ -0,0 +1,1 @@
+hello
`,
	}
	f := newFixture(t, testSpec, testEvent, git)

	code := New(f.opts).Run(context.Background())
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	r := f.readReport(t)
	if !r.Passed || len(r.Failures) != 0 {
		t.Fatalf("report = %+v", r)
	}
}

func TestRun_RemovedLineNeverMatches(t *testing.T) {
	git := &fakeGit{
		files: []string{"scripts/clean.sh"},
		diff: `--- a/scripts/clean.sh
+++ b/scripts/clean.sh
@@ -12,1 +12,0 @@
-rm -rf /data
`,
	}
	f := newFixture(t, testSpec, testEvent, git)

	if code := New(f.opts).Run(context.Background()); code != 0 {
		t.Fatalf("exit code = %d, want 0 (pattern only in a removed line)", code)
	}
}

func TestRun_ProtectedPathSuppressedByLabel(t *testing.T) {
	git := &fakeGit{files: []string{"deploy/prod.tf"}, diff: ""}

	labeled := `{
  "pull_request": {
    "number": 42,
    "title": "t",
    "labels": [{"name": "saykai-approved"}],
    "base": {"sha": "aaa"},
    "head": {"sha": "bbb"}
  }
}`
	f := newFixture(t, testSpec, labeled, git)
	if code := New(f.opts).Run(context.Background()); code != 0 {
		t.Fatalf("exit code = %d, want 0 with approval label", code)
	}

	f = newFixture(t, testSpec, testEvent, git)
	if code := New(f.opts).Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1 without approval label", code)
	}
	r := f.readReport(t)
	if len(r.Failures) != 1 || r.Failures[0].Kind != policy.KindPath {
		t.Fatalf("failures = %+v", r.Failures)
	}
	if got := r.Failures[0].TouchedFiles; len(got) != 1 || got[0] != "deploy/prod.tf" {
		t.Fatalf("touched = %v", got)
	}
}

func TestRun_NonApplicableEvent(t *testing.T) {
	f := newFixture(t, testSpec, `{"ref": "refs/heads/main"}`, &fakeGit{})

	if code := New(f.opts).Run(context.Background()); code != 0 {
		t.Fatal("non-PR events must exit 0")
	}
	if _, err := os.Stat(filepath.Join(f.outDir, "report.json")); !os.IsNotExist(err) {
		t.Fatal("non-applicable events must not produce a report")
	}
}

func TestRun_MissingSpecIsFatalButReported(t *testing.T) {
	f := newFixture(t, "", testEvent, &fakeGit{})

	if code := New(f.opts).Run(context.Background()); code != 1 {
		t.Fatal("missing spec must exit 1")
	}
	r := f.readReport(t)
	if r.SpecVersion != "unknown" {
		t.Fatalf("spec version = %q", r.SpecVersion)
	}
	if len(r.Failures) != 1 || r.Failures[0].FatalKind != policy.FatalMissingSpec {
		t.Fatalf("failures = %+v", r.Failures)
	}
	if r.PullRequest.Number != 42 {
		t.Fatal("fatal report must keep the PR metadata known at failure time")
	}
}

func TestRun_InvalidSpecIsSchemaError(t *testing.T) {
	f := newFixture(t, "version: 1\n", testEvent, &fakeGit{})

	if code := New(f.opts).Run(context.Background()); code != 1 {
		t.Fatal("invalid spec must exit 1")
	}
	r := f.readReport(t)
	if len(r.Failures) == 0 || r.Failures[0].FatalKind != policy.FatalSchema {
		t.Fatalf("failures = %+v", r.Failures)
	}
}

func TestRun_DiffErrorIsRangeError(t *testing.T) {
	git := &fakeGit{diffErr: errors.New("fatal: bad revision 'aaa111'")}
	f := newFixture(t, testSpec, testEvent, git)

	if code := New(f.opts).Run(context.Background()); code != 1 {
		t.Fatal("unresolvable range must exit 1")
	}
	r := f.readReport(t)
	if len(r.Failures) != 1 || r.Failures[0].FatalKind != policy.FatalRange {
		t.Fatalf("failures = %+v", r.Failures)
	}
}

func TestRun_MaxFilesCapsEvaluation(t *testing.T) {
	git := &fakeGit{
		files: []string{"docs/a.md", "scripts/clean.sh"},
		diff: `--- a/docs/a.md
+++ b/docs/a.md
@@ -0,0 +1,1 @@
+fine
--- a/scripts/clean.sh
+++ b/scripts/clean.sh
@@ -11,0 +12,1 @@
+rm -rf /data
`,
	}
	f := newFixture(t, testSpec, testEvent, git)
	f.opts.MaxFiles = 1

	if code := New(f.opts).Run(context.Background()); code != 0 {
		t.Fatal("capped run must not evaluate files past the cap")
	}
	r := f.readReport(t)
	if r.ChangedCount != 2 || r.EvaluatedCount != 1 {
		t.Fatalf("counts = %d changed, %d evaluated", r.ChangedCount, r.EvaluatedCount)
	}
}

func TestRun_DeterministicReports(t *testing.T) {
	git := &fakeGit{
		files: []string{"scripts/clean.sh"},
		diff: `--- a/scripts/clean.sh
+++ b/scripts/clean.sh
@@ -11,0 +12,1 @@
+rm -rf /data
`,
	}

	var reports [2][]byte
	for i := range reports {
		f := newFixture(t, testSpec, testEvent, git)
		New(f.opts).Run(context.Background())
		data, err := os.ReadFile(filepath.Join(f.outDir, "report.json"))
		if err != nil {
			t.Fatal(err)
		}
		reports[i] = data
	}
	if !bytes.Equal(reports[0], reports[1]) {
		t.Fatal("identical inputs must yield identical reports")
	}
}
