package policy

import (
	"strings"

	"github.com/saykai/saykai/internal/diffscan"
	"github.com/saykai/saykai/internal/spec"
)

// sampleLimit bounds the quoted line content carried in a MatchHit.
const sampleLimit = 200

// CheckPatterns matches every forbidden-pattern rule against every added
// line. Matching is literal, case-sensitive substring containment; there are
// no regex semantics. Several rules may fire on the same line. Emission
// order is line order, then rule order.
func CheckPatterns(s *spec.Spec, lines []diffscan.AddedLine) []MatchHit {
	var hits []MatchHit
	for _, line := range lines {
		for _, rule := range s.PatternRules {
			if !strings.Contains(line.Content, rule.Pattern) {
				continue
			}
			hits = append(hits, MatchHit{
				RuleID:  rule.ID,
				File:    line.File,
				Line:    line.Number,
				Pattern: rule.Pattern,
				Message: rule.Message,
				Sample:  truncateSample(line.Content),
			})
		}
	}
	return hits
}

// CheckProtectedPaths emits one violation per protected-path rule whose
// prefixes cover at least one changed file, unless the pull request carries
// the required approval label. The violation lists every touched file.
func CheckProtectedPaths(s *spec.Spec, changedFiles []string, labels []string, requiredLabel string) []PathViolation {
	if hasLabel(labels, requiredLabel) {
		return nil
	}

	var violations []PathViolation
	for _, rule := range s.PathRules {
		var touched []string
		for _, file := range changedFiles {
			if pathTouches(file, rule.Paths) {
				touched = append(touched, file)
			}
		}
		if len(touched) == 0 {
			continue
		}
		violations = append(violations, PathViolation{
			RuleID:        rule.ID,
			Message:       rule.Message,
			RequiredLabel: requiredLabel,
			TouchedFiles:  touched,
		})
	}
	return violations
}

// pathTouches reports whether file equals, or is a separator-bounded
// descendant of, any of the given prefixes. Separators are normalized to
// forward slashes and trailing slashes on prefixes are stripped first.
func pathTouches(file string, prefixes []string) bool {
	file = normalizePath(file)
	for _, prefix := range prefixes {
		p := strings.TrimRight(normalizePath(prefix), "/")
		if p == "" {
			continue
		}
		if file == p || strings.HasPrefix(file, p+"/") {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func hasLabel(labels []string, name string) bool {
	for _, l := range labels {
		if l == name {
			return true
		}
	}
	return false
}

func truncateSample(s string) string {
	runes := []rune(s)
	if len(runes) <= sampleLimit {
		return s
	}
	return string(runes[:sampleLimit])
}
