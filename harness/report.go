package harness

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/rlgrade/compare"
)

// Report is a suite run as recorded in the ledger.
type Report struct {
	RunID          string
	Suite          string
	FixtureVersion string
	Strict         bool

	// Results are in execution order.
	Results []Result

	// Counts tallies Results by verdict.
	Counts map[Verdict]int
}

// Report rebuilds the report of a recorded run from the ledger.
func (h *Harness) Report(ctx context.Context, runID string) (*Report, error) {
	run, err := h.ledger.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	records, err := h.ledger.ReadResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	counts, err := h.ledger.CountVerdicts(ctx, runID)
	if err != nil {
		return nil, err
	}

	r := &Report{
		RunID:          run.ID,
		Suite:          run.Suite,
		FixtureVersion: run.FixtureVersion,
		Strict:         run.Strict,
		Results:        make([]Result, 0, len(records)),
		Counts:         make(map[Verdict]int, len(counts)),
	}
	for _, rec := range records {
		res := Result{
			CheckID:  rec.CheckID,
			Kind:     compare.Kind(rec.Kind),
			Severity: Severity(rec.Severity),
			Verdict:  Verdict(rec.Verdict),
			Message:  rec.Message,
		}
		if len(rec.Details) > 0 {
			res.Details = rec.Details
		}
		r.Results = append(r.Results, res)
	}
	for v, n := range counts {
		r.Counts[Verdict(v)] = n
	}
	return r, nil
}

// Passed applies the suite policy: any failure fails the run, and under a
// strict policy so does any warning. Skipped checks never fail a run.
func (r *Report) Passed() bool {
	if r.Counts[VerdictFail] > 0 {
		return false
	}
	return !r.Strict || r.Counts[VerdictWarning] == 0
}

// Render writes a plain-text summary of the report.
func (r *Report) Render(w io.Writer) error {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	policy := "advisory"
	if r.Strict {
		policy = "strict"
	}
	fmt.Fprintf(&b, "suite: %s\n", r.Suite)
	fmt.Fprintf(&b, "fixtures: %s\n", r.FixtureVersion)
	fmt.Fprintf(&b, "run: %s\n", r.RunID)
	fmt.Fprintf(&b, "policy: %s\n\n", policy)

	for _, res := range r.Results {
		fmt.Fprintf(&b, "%-8s %s\n", res.Verdict, res.CheckID)
		if res.Verdict == VerdictPass {
			continue
		}
		if res.Message != "" {
			fmt.Fprintf(&b, "         %s\n", res.Message)
		}
		for _, d := range res.Details {
			fmt.Fprintf(&b, "         %s\n", d)
		}
	}

	b.WriteString("\n")
	b.WriteString(p.Sprintf("%d checks: %d pass, %d warning, %d fail, %d skipped\n",
		len(r.Results), r.Counts[VerdictPass], r.Counts[VerdictWarning], r.Counts[VerdictFail], r.Counts[VerdictSkipped]))

	verdict := "PASS"
	if !r.Passed() {
		verdict = "FAIL"
	}
	fmt.Fprintf(&b, "verdict: %s\n", verdict)

	_, err := io.WriteString(w, b.String())
	return err
}
