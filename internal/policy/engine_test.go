package policy

import (
	"strings"
	"testing"

	"github.com/saykai/saykai/internal/diffscan"
	"github.com/saykai/saykai/internal/spec"
)

func TestCheckPatterns_Hit(t *testing.T) {
	s := &spec.Spec{
		PatternRules: []spec.PatternRule{
			{ID: "no-rm-rf", Pattern: "rm -rf", Message: "blocked"},
		},
	}
	lines := []diffscan.AddedLine{
		{File: "scripts/clean.sh", Number: 12, Content: "rm -rf /data"},
	}

	hits := CheckPatterns(s, lines)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	h := hits[0]
	if h.RuleID != "no-rm-rf" || h.File != "scripts/clean.sh" || h.Line != 12 {
		t.Fatalf("hit = %+v", h)
	}
	if h.Sample != "rm -rf /data" {
		t.Fatalf("sample = %q", h.Sample)
	}
}

func TestCheckPatterns_CaseSensitiveLiteral(t *testing.T) {
	s := &spec.Spec{
		PatternRules: []spec.PatternRule{
			{ID: "r1", Pattern: "DROP TABLE", Message: "m"},
			{ID: "r2", Pattern: "a.c", Message: "m"},
		},
	}
	lines := []diffscan.AddedLine{
		{File: "f", Number: 1, Content: "drop table users"},
		{File: "f", Number: 2, Content: "abc"},
	}
	if hits := CheckPatterns(s, lines); len(hits) != 0 {
		t.Fatalf("expected no hits (case-sensitive, no regex), got %+v", hits)
	}
}

func TestCheckPatterns_OrderLineThenRule(t *testing.T) {
	s := &spec.Spec{
		PatternRules: []spec.PatternRule{
			{ID: "first", Pattern: "tok", Message: "m"},
			{ID: "second", Pattern: "token", Message: "m"},
		},
	}
	lines := []diffscan.AddedLine{
		{File: "f", Number: 1, Content: "token here"},
		{File: "f", Number: 2, Content: "another token"},
	}

	hits := CheckPatterns(s, lines)
	if len(hits) != 4 {
		t.Fatalf("got %d hits, want 4", len(hits))
	}
	wantOrder := []struct {
		rule string
		line int
	}{
		{"first", 1}, {"second", 1}, {"first", 2}, {"second", 2},
	}
	for i, w := range wantOrder {
		if hits[i].RuleID != w.rule || hits[i].Line != w.line {
			t.Fatalf("hit %d = %+v, want rule %s line %d", i, hits[i], w.rule, w.line)
		}
	}
}

func TestCheckPatterns_SampleTruncated(t *testing.T) {
	s := &spec.Spec{
		PatternRules: []spec.PatternRule{{ID: "r", Pattern: "x", Message: "m"}},
	}
	long := "x" + strings.Repeat("é", 400)
	hits := CheckPatterns(s, []diffscan.AddedLine{{File: "f", Number: 1, Content: long}})
	if len(hits) != 1 {
		t.Fatal("expected a hit")
	}
	if n := len([]rune(hits[0].Sample)); n != sampleLimit {
		t.Fatalf("sample length = %d runes, want %d", n, sampleLimit)
	}
}

func TestCheckProtectedPaths_TouchAndSuppress(t *testing.T) {
	s := &spec.Spec{
		PathRules: []spec.PathRule{
			{ID: "infra", Paths: []string{"a/"}, Message: "needs approval"},
		},
	}
	changed := []string{"a/x.txt", "b/y.txt"}

	violations := CheckProtectedPaths(s, changed, nil, "saykai-approved")
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(violations))
	}
	v := violations[0]
	if v.RuleID != "infra" || v.RequiredLabel != "saykai-approved" {
		t.Fatalf("violation = %+v", v)
	}
	if len(v.TouchedFiles) != 1 || v.TouchedFiles[0] != "a/x.txt" {
		t.Fatalf("touched = %v, want [a/x.txt]", v.TouchedFiles)
	}

	// The same input with the approval label present is clean.
	violations = CheckProtectedPaths(s, changed, []string{"saykai-approved"}, "saykai-approved")
	if len(violations) != 0 {
		t.Fatalf("expected label to suppress, got %+v", violations)
	}
}

func TestPathTouches(t *testing.T) {
	tests := []struct {
		file     string
		prefixes []string
		want     bool
	}{
		{"a/x.txt", []string{"a/"}, true},
		{"a/x.txt", []string{"a"}, true},
		{"a", []string{"a/"}, true},
		{"ab/x.txt", []string{"a"}, false},
		{"deploy/prod/main.tf", []string{"deploy"}, true},
		{"Makefile", []string{"Makefile"}, true},
		{"sub/Makefile", []string{"Makefile"}, false},
		{"a\\x.txt", []string{"a/"}, true},
		{"b/y.txt", []string{"a/"}, false},
	}
	for _, tt := range tests {
		if got := pathTouches(tt.file, tt.prefixes); got != tt.want {
			t.Errorf("pathTouches(%q, %v) = %v, want %v", tt.file, tt.prefixes, got, tt.want)
		}
	}
}

func TestVerdict_AccumulationOnly(t *testing.T) {
	v := NewVerdict()
	if !v.Passed {
		t.Fatal("fresh verdict must pass")
	}

	v.AddHit(MatchHit{RuleID: "r", File: "f", Line: 1})
	if v.Passed {
		t.Fatal("verdict must fail after a hit")
	}

	v.AddViolation(PathViolation{RuleID: "p"})
	v.AddFatal(FatalRange, "cannot resolve base..head")
	if v.Passed {
		t.Fatal("verdict must never revert to passing")
	}
	if len(v.Failures) != 3 {
		t.Fatalf("failures = %d, want 3", len(v.Failures))
	}
	if v.Failures[2].Kind != KindFatal || v.Failures[2].FatalKind != FatalRange {
		t.Fatalf("fatal entry = %+v", v.Failures[2])
	}
}
