// Package diffscan extracts added lines from zero-context unified diffs.
package diffscan

import (
	"strconv"
	"strings"
)

// AddedLine is one line present in the post-change version of a file and
// absent from the pre-change version. Number uses post-change, 1-based
// numbering; within a hunk consecutive added lines number up by exactly 1.
type AddedLine struct {
	File    string
	Number  int
	Content string
}

// AddedLines walks unified-diff text and returns every added line in diff
// order with its file and post-change line number. A `+++ b/...` marker
// resets the current file and the line cursor, a hunk header seeds the cursor
// from its new-file start, each `+` line consumes the cursor then increments
// it, each `-` line is skipped without touching the cursor. The diff is
// expected to carry zero context lines.
func AddedLines(diff string) []AddedLine {
	var (
		lines  []AddedLine
		file   string
		cursor int
	)

	for _, raw := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(raw, "+++ "):
			file = newFilePath(raw)
			cursor = 0

		case strings.HasPrefix(raw, "@@"):
			if start, ok := hunkNewStart(raw); ok {
				cursor = start
			}

		case strings.HasPrefix(raw, "+"):
			if file == "" || cursor == 0 {
				continue
			}
			lines = append(lines, AddedLine{
				File:    file,
				Number:  cursor,
				Content: strings.TrimPrefix(raw, "+"),
			})
			cursor++

		case strings.HasPrefix(raw, "---"), strings.HasPrefix(raw, "-"):
			// removed line, never advances the post-change cursor
		}
	}

	return lines
}

// newFilePath extracts the path from a `+++ b/path` marker. `/dev/null`
// (file deletion) yields the empty string so following hunks are ignored.
func newFilePath(line string) string {
	target := strings.TrimPrefix(line, "+++ ")
	if i := strings.IndexByte(target, '\t'); i >= 0 {
		target = target[:i]
	}
	if target == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(target, "b/")
}

// hunkNewStart parses the new-file starting line out of a hunk header such
// as `@@ -12,0 +13,2 @@`.
func hunkNewStart(line string) (int, bool) {
	for _, field := range strings.Fields(line) {
		if !strings.HasPrefix(field, "+") {
			continue
		}
		numbers := strings.TrimPrefix(field, "+")
		if i := strings.IndexByte(numbers, ','); i >= 0 {
			numbers = numbers[:i]
		}
		start, err := strconv.Atoi(numbers)
		if err != nil {
			return 0, false
		}
		return start, true
	}
	return 0, false
}
