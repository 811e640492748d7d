package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/rlgrade/candidate"
	"github.com/roach88/rlgrade/compare"
	"github.com/roach88/rlgrade/internal/fixture"
	"github.com/roach88/rlgrade/internal/store"
)

// Config configures a Harness. The zero value grades against the current
// embedded fixtures with an in-memory ledger.
type Config struct {
	// FixtureVersion selects an embedded fixture set. Defaults to the
	// current version.
	FixtureVersion string

	// FixturesDir loads the fixture set from a directory of CUE documents
	// instead of the embedded ones.
	FixturesDir string

	// Fixtures injects an already loaded fixture set, taking precedence
	// over FixtureVersion and FixturesDir.
	Fixtures *fixture.Set

	// LedgerPath is the SQLite file verdicts are recorded in. Empty means
	// ":memory:", which is discarded on Close.
	LedgerPath string

	// Logger receives check outcomes. Defaults to slog.Default().
	Logger *slog.Logger

	// Clock stamps ledger sequence numbers. Defaults to a LogicalClock
	// resumed from the ledger's highest seq.
	Clock Clock

	// RunIDs names suite runs. Defaults to UUIDv7Generator.
	RunIDs RunIDGenerator

	// Strict applies a strict policy to every suite, whatever its own
	// policy says.
	Strict bool
}

// Harness runs grading checks against candidates and records verdicts.
//
// A Harness is not safe for concurrent use; checks run one at a time.
type Harness struct {
	fixtures *fixture.Set
	ledger   *store.Store
	logger   *slog.Logger
	clock    Clock
	runIDs   RunIDGenerator
	strict   bool
	checks   map[string]*Check
}

// New creates a harness and opens its ledger.
func New(cfg Config) (*Harness, error) {
	fixtures, err := loadFixtures(cfg)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}

	path := cfg.LedgerPath
	if path == "" {
		path = ":memory:"
	}
	ledger, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		last, err := ledger.MaxSeq(context.Background())
		if err != nil {
			ledger.Close()
			return nil, fmt.Errorf("resume clock: %w", err)
		}
		clock = NewLogicalClockAt(last)
	}

	h := &Harness{
		fixtures: fixtures,
		ledger:   ledger,
		logger:   cfg.Logger,
		clock:    clock,
		runIDs:   cfg.RunIDs,
		strict:   cfg.Strict,
		checks:   make(map[string]*Check, len(registry)),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.runIDs == nil {
		h.runIDs = UUIDv7Generator{}
	}
	for i := range registry {
		c := registry[i]
		h.checks[c.ID] = &c
	}
	return h, nil
}

func loadFixtures(cfg Config) (*fixture.Set, error) {
	switch {
	case cfg.Fixtures != nil:
		return cfg.Fixtures, nil
	case cfg.FixturesDir != "":
		return fixture.LoadDir(cfg.FixturesDir)
	case cfg.FixtureVersion != "":
		return fixture.Load(cfg.FixtureVersion)
	default:
		return fixture.Load(fixture.Current)
	}
}

// Close closes the ledger.
func (h *Harness) Close() error {
	return h.ledger.Close()
}

// FixtureVersion returns the version of the fixture set checks compare
// against.
func (h *Harness) FixtureVersion() string {
	return h.fixtures.Version
}

// Run executes one check against a candidate.
//
// Candidate problems, including a missing capability, an error return, a
// panic, or malformed output, are reported as a failing Result. The error
// return is reserved for harness faults: an unknown check ID, a cancelled
// context, or broken fixtures.
func (h *Harness) Run(ctx context.Context, checkID string, c any) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	check, ok := h.checks[checkID]
	if !ok {
		return Result{}, &UnknownCheckError{ID: checkID}
	}

	err := h.invoke(check, c)

	var fe *fixtureError
	if errors.As(err, &fe) {
		return Result{}, fmt.Errorf("check %s: %w", checkID, fe.err)
	}

	res := judge(check, err)
	h.log(res)
	return res, nil
}

func (h *Harness) invoke(check *Check, c any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &candidateError{fmt.Errorf("candidate panicked: %v", r)}
		}
	}()
	return check.run(&env{fixtures: h.fixtures, check: check}, c)
}

// judge turns the outcome of a check procedure into a verdict. Only a
// comparison mismatch can be softened to a warning.
func judge(check *Check, err error) Result {
	res := Result{
		CheckID:  check.ID,
		Kind:     check.Kind,
		Severity: check.Severity,
		Verdict:  VerdictPass,
	}
	if err == nil {
		return res
	}

	res.Message = check.Message
	res.Details = []string{err.Error()}

	var mismatch *compare.Mismatch
	var capErr *candidate.CapabilityError
	var candErr *candidateError
	switch {
	case errors.As(err, &capErr), errors.As(err, &candErr), compare.IsShapeError(err):
		res.Verdict = VerdictFail
	case errors.As(err, &mismatch) && check.Severity == SeveritySoft:
		res.Verdict = VerdictWarning
	default:
		res.Verdict = VerdictFail
	}
	return res
}

func skipped(check *Check) Result {
	return Result{
		CheckID:  check.ID,
		Kind:     check.Kind,
		Severity: check.Severity,
		Verdict:  VerdictSkipped,
		Message:  "no candidate supplied",
	}
}

func (h *Harness) log(res Result) {
	attrs := []any{"check", res.CheckID, "verdict", res.Verdict}
	if len(res.Details) > 0 {
		attrs = append(attrs, "detail", res.Details[0])
	}

	switch res.Verdict {
	case VerdictWarning:
		h.logger.Warn(res.Message, attrs...)
	case VerdictFail:
		h.logger.Error(res.Message, attrs...)
	default:
		h.logger.Debug("check finished", attrs...)
	}
}
