// Package policy evaluates a loaded spec against a scanned diff and produces
// the run's verdict.
package policy

// FailureKind discriminates entries in a verdict's failure list.
type FailureKind string

const (
	KindPattern FailureKind = "forbidden_pattern"
	KindPath    FailureKind = "protected_path"
	KindFatal   FailureKind = "fatal"
)

// Fatal kinds. Fatal conditions abort the run before scanning but still
// route through the same verdict and report shape.
const (
	FatalSchema      = "schema_error"
	FatalRange       = "range_error"
	FatalMissingSpec = "missing_spec"
)

// MatchHit is one forbidden-pattern finding on one added line.
type MatchHit struct {
	RuleID  string
	File    string
	Line    int
	Pattern string
	Message string
	Sample  string
}

// PathViolation reports protected paths touched without the approval label.
type PathViolation struct {
	RuleID        string
	Message       string
	RequiredLabel string
	TouchedFiles  []string
}

// Failure is the serialized union of the three failure kinds.
type Failure struct {
	Kind          FailureKind `json:"kind"`
	RuleID        string      `json:"rule_id,omitempty"`
	Message       string      `json:"message"`
	File          string      `json:"file,omitempty"`
	Line          int         `json:"line,omitempty"`
	Pattern       string      `json:"pattern,omitempty"`
	Sample        string      `json:"sample,omitempty"`
	RequiredLabel string      `json:"required_label,omitempty"`
	TouchedFiles  []string    `json:"touched_files,omitempty"`
	FatalKind     string      `json:"fatal_kind,omitempty"`
}

// Verdict accumulates failures for one run. It is append-only: once any
// failure lands, Passed is false and never flips back.
type Verdict struct {
	Passed   bool
	Failures []Failure
}

// NewVerdict returns a passing, empty verdict.
func NewVerdict() *Verdict {
	return &Verdict{Passed: true}
}

// AddHit records a forbidden-pattern finding.
func (v *Verdict) AddHit(h MatchHit) {
	v.add(Failure{
		Kind:    KindPattern,
		RuleID:  h.RuleID,
		Message: h.Message,
		File:    h.File,
		Line:    h.Line,
		Pattern: h.Pattern,
		Sample:  h.Sample,
	})
}

// AddViolation records a protected-path violation.
func (v *Verdict) AddViolation(p PathViolation) {
	v.add(Failure{
		Kind:          KindPath,
		RuleID:        p.RuleID,
		Message:       p.Message,
		RequiredLabel: p.RequiredLabel,
		TouchedFiles:  p.TouchedFiles,
	})
}

// AddFatal records a fatal condition (schema_error, range_error,
// missing_spec) under the same failure shape as rule violations.
func (v *Verdict) AddFatal(kind, message string) {
	v.add(Failure{
		Kind:      KindFatal,
		FatalKind: kind,
		Message:   message,
	})
}

func (v *Verdict) add(f Failure) {
	v.Failures = append(v.Failures, f)
	v.Passed = false
}
