package harness

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rlgrade/internal/store"
)

//go:embed suites/*.yaml
var suiteFS embed.FS

// Suite is an ordered group of checks graded together.
type Suite struct {
	// Name identifies the suite, e.g. "hw1".
	Name string `yaml:"name"`

	// Description says what the suite grades.
	Description string `yaml:"description"`

	// Fixtures pins the fixture version. Empty accepts whatever the
	// harness loaded.
	Fixtures string `yaml:"fixtures,omitempty"`

	// Policy decides how warnings count toward the verdict.
	Policy Policy `yaml:"policy"`

	// Checks lists check IDs in execution order.
	Checks []string `yaml:"checks"`
}

// Policy controls how a report is judged.
type Policy struct {
	// Strict makes soft warnings fail the run. Off by default: performance
	// checks are advisory.
	Strict bool `yaml:"strict"`
}

// Candidates maps check IDs to the candidate each check exercises.
type Candidates map[string]any

// LoadSuite reads and parses a suite YAML file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return ParseSuite(data)
}

// ParseSuite parses suite YAML. Unknown fields are rejected so that typos
// such as "check:" surface at load time.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &suite, nil
}

// DefaultSuite returns an embedded suite by name.
func DefaultSuite(name string) (*Suite, error) {
	data, err := suiteFS.ReadFile(path.Join("suites", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("no embedded suite %q (have %s)", name, strings.Join(DefaultSuiteNames(), ", "))
	}
	return ParseSuite(data)
}

// DefaultSuiteNames lists the embedded suites.
func DefaultSuiteNames() []string {
	entries, err := suiteFS.ReadDir("suites")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Checks) == 0 {
		return fmt.Errorf("checks list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Checks))
	for i, id := range s.Checks {
		if id == "" {
			return fmt.Errorf("checks[%d]: check ID is required", i)
		}
		if seen[id] {
			return fmt.Errorf("checks[%d]: duplicate check %q", i, id)
		}
		seen[id] = true
		if _, err := LookupCheck(id); err != nil {
			return fmt.Errorf("checks[%d]: %w", i, err)
		}
	}
	return nil
}

// ErrRunExists is returned by RunSuite when the generated run ID is already
// recorded in the ledger.
var ErrRunExists = store.ErrRunExists

// RunSuite runs every check of s in declared order, records the run and
// its verdicts in the ledger, and returns the report read back from it. A
// check with no entry in candidates is recorded as skipped.
//
// Nothing is recorded when a harness fault aborts the suite. A run ID that
// is already in the ledger is rejected with ErrRunExists.
func (h *Harness) RunSuite(ctx context.Context, s *Suite, candidates Candidates) (*Report, error) {
	if err := validateSuite(s); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	if s.Fixtures != "" && s.Fixtures != h.fixtures.Version {
		return nil, fmt.Errorf("suite %s wants fixtures %s, harness loaded %s", s.Name, s.Fixtures, h.fixtures.Version)
	}
	inSuite := make(map[string]bool, len(s.Checks))
	for _, id := range s.Checks {
		inSuite[id] = true
	}
	for id := range candidates {
		if !inSuite[id] {
			return nil, fmt.Errorf("candidate supplied for check %q, which suite %s does not run", id, s.Name)
		}
	}

	runID := h.runIDs.Generate()
	run := store.RunRecord{
		ID:             runID,
		Suite:          s.Name,
		FixtureVersion: h.fixtures.Version,
		Strict:         s.Policy.Strict || h.strict,
		Seq:            h.clock.Next(),
	}
	h.logger.Info("suite started", "suite", s.Name, "run", runID, "checks", len(s.Checks))

	records := make([]store.ResultRecord, 0, len(s.Checks))
	for _, id := range s.Checks {
		var res Result
		c, ok := candidates[id]
		if ok {
			var err error
			res, err = h.Run(ctx, id, c)
			if err != nil {
				return nil, fmt.Errorf("suite %s: %w", s.Name, err)
			}
		} else {
			res = skipped(h.checks[id])
			h.log(res)
		}

		records = append(records, store.ResultRecord{
			RunID:    runID,
			Seq:      h.clock.Next(),
			CheckID:  res.CheckID,
			Kind:     string(res.Kind),
			Severity: string(res.Severity),
			Verdict:  string(res.Verdict),
			Message:  res.Message,
			Details:  res.Details,
		})
	}

	if err := h.ledger.RecordRun(ctx, run, records); err != nil {
		return nil, fmt.Errorf("suite %s: %w", s.Name, err)
	}

	return h.Report(ctx, runID)
}
