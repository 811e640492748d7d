package harness

import "github.com/roach88/rlgrade/compare"

// Severity decides what a failed comparison means for the run.
type Severity string

const (
	// SeverityHard marks checks of update rules, shapes, and deterministic
	// formulas. A mismatch fails the check.
	SeverityHard Severity = "hard"

	// SeveritySoft marks performance checks. A mismatch is reported as a
	// warning and the suite carries on.
	SeveritySoft Severity = "soft"
)

// Verdict is the outcome of one check.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictWarning Verdict = "warning"
	VerdictFail    Verdict = "fail"
	VerdictSkipped Verdict = "skipped"
)

// Result is the immutable outcome of running one check against one
// candidate.
type Result struct {
	CheckID  string       `json:"check_id"`
	Kind     compare.Kind `json:"kind"`
	Severity Severity     `json:"severity"`
	Verdict  Verdict      `json:"verdict"`

	// Message is the check's human-readable explanation. Empty on pass.
	Message string `json:"message,omitempty"`

	// Details holds the underlying mismatch or candidate error.
	Details []string `json:"details,omitempty"`
}

// Failed reports whether the verdict is a hard failure.
func (r Result) Failed() bool {
	return r.Verdict == VerdictFail
}

// Warned reports whether the verdict is a soft warning.
func (r Result) Warned() bool {
	return r.Verdict == VerdictWarning
}
