package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/saykai/saykai/internal/policy"
)

// maxTouchedDisplay caps the touched-file list in rendered output. The
// structured report always carries the full list.
const maxTouchedDisplay = 20

// Render writes the human-readable report.
func Render(w io.Writer, r *Report, colored bool) {
	s := styler{enabled: colored}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", s.cb(brightWhite, "SAYKAI POLICY GATE"))
	fmt.Fprintf(w, "  %s\n", s.c(dim, strings.Repeat("─", 50)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s  #%d %s\n", s.c(dim, "PR"), r.PullRequest.Number, r.PullRequest.Title)
	fmt.Fprintf(w, "  %s  %s..%s\n", s.c(dim, "RANGE"), shortSHA(r.Base), shortSHA(r.Head))
	fmt.Fprintf(w, "  %s  %s\n", s.c(dim, "SPEC"), r.SpecVersion)
	fmt.Fprintf(w, "  %s  %d changed, %d evaluated\n", s.c(dim, "FILES"), r.ChangedCount, r.EvaluatedCount)
	if r.EvaluatedCount < r.ChangedCount {
		fmt.Fprintf(w, "  %s  evaluation capped at the first %d files\n", s.c(yellow, "NOTE"), r.EvaluatedCount)
	}
	fmt.Fprintln(w)

	if r.Passed {
		fmt.Fprintf(w, "  %s  %s\n", s.cb(brightGreen, "PASS"), s.c(green, "no policy violations in added changes"))
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  %s  %d failure%s\n", s.cb(brightRed, "BLOCK"), len(r.Failures), plural(len(r.Failures)))
	fmt.Fprintln(w)

	for _, f := range r.Failures {
		renderFailure(w, s, f)
	}
	fmt.Fprintln(w)
}

func renderFailure(w io.Writer, s styler, f policy.Failure) {
	switch f.Kind {
	case policy.KindPattern:
		fmt.Fprintf(w, "  %s %s %s\n",
			s.c(red, "✗"),
			s.cb(white, fmt.Sprintf("[%s]", f.RuleID)),
			s.c(cyan, fmt.Sprintf("%s:%d", f.File, f.Line)))
		fmt.Fprintf(w, "    %s\n", f.Message)
		if f.Sample != "" {
			fmt.Fprintf(w, "    %s %s\n", s.c(dim, ">"), s.c(dim, f.Sample))
		}

	case policy.KindPath:
		fmt.Fprintf(w, "  %s %s %s\n",
			s.c(red, "✗"),
			s.cb(white, fmt.Sprintf("[%s]", f.RuleID)),
			f.Message)
		fmt.Fprintf(w, "    missing label %s, touched:\n", s.c(yellow, f.RequiredLabel))
		for i, file := range f.TouchedFiles {
			if i == maxTouchedDisplay {
				fmt.Fprintf(w, "      %s\n", s.c(dim, fmt.Sprintf("… and %d more", len(f.TouchedFiles)-maxTouchedDisplay)))
				break
			}
			fmt.Fprintf(w, "      %s\n", s.c(cyan, file))
		}

	case policy.KindFatal:
		fmt.Fprintf(w, "  %s %s %s\n",
			s.c(red, "✗"),
			s.cb(white, fmt.Sprintf("[%s]", f.FatalKind)),
			f.Message)
	}
}

// Markdown writes the report for the CI run-summary channel.
func Markdown(w io.Writer, r *Report) {
	fmt.Fprintln(w, "## Saykai policy gate")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- PR: #%d %s\n", r.PullRequest.Number, r.PullRequest.Title)
	fmt.Fprintf(w, "- Range: `%s..%s`\n", shortSHA(r.Base), shortSHA(r.Head))
	fmt.Fprintf(w, "- Spec: %s\n", r.SpecVersion)
	fmt.Fprintf(w, "- Files: %d changed, %d evaluated\n", r.ChangedCount, r.EvaluatedCount)
	fmt.Fprintln(w)

	if r.Passed {
		fmt.Fprintln(w, "**PASS** — no policy violations in added changes.")
		return
	}

	fmt.Fprintf(w, "**BLOCK** — %d failure%s:\n", len(r.Failures), plural(len(r.Failures)))
	fmt.Fprintln(w)
	for _, f := range r.Failures {
		switch f.Kind {
		case policy.KindPattern:
			fmt.Fprintf(w, "- `%s` at `%s:%d` — %s\n", f.RuleID, f.File, f.Line, f.Message)
		case policy.KindPath:
			files := f.TouchedFiles
			suffix := ""
			if len(files) > maxTouchedDisplay {
				suffix = fmt.Sprintf(" … and %d more", len(files)-maxTouchedDisplay)
				files = files[:maxTouchedDisplay]
			}
			fmt.Fprintf(w, "- `%s` — %s (missing label `%s`): %s%s\n",
				f.RuleID, f.Message, f.RequiredLabel, strings.Join(files, ", "), suffix)
		case policy.KindFatal:
			fmt.Fprintf(w, "- `%s` — %s\n", f.FatalKind, f.Message)
		}
	}
}

func shortSHA(sha string) string {
	if sha == "" {
		return "?"
	}
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
