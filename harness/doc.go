// Package harness grades candidate implementations of bandit agents and
// policy-gradient utilities against fixed reference data.
//
// Each registered Check exercises one capability of a candidate and
// compares its output with a fixture using one of four comparison kinds:
// range, scalar tolerance, vector tolerance, or exact sequence. A mismatch
// in a hard check fails it; a mismatch in a soft (performance) check is a
// warning and grading continues. Missing capabilities, candidate errors,
// panics, and shape mismatches always fail.
//
// # Suite Format
//
// Suites group checks and are defined in YAML:
//
//	name: hw1
//	description: "Multi-armed and contextual bandits"
//	fixtures: v1
//	policy:
//	  strict: false
//	checks:
//	  - oracle.reward
//	  - ucb.update_q
//
// The embedded suites are listed by DefaultSuiteNames.
//
// # Ledger
//
// RunSuite records every verdict in a SQLite ledger, stamped with a run ID
// and a logical sequence number, and builds its Report by reading the run
// back. A run is recorded in one transaction once every check has
// finished, so an aborted suite leaves no trace. The ledger is in-memory
// unless Config.LedgerPath names a file.
//
// # Deterministic Testing
//
// Seeded checks re-seed the candidate immediately before invoking it, so
// execution order never changes an outcome. Tests inject
// a fresh LogicalClock and a fixed RunIDGenerator so rendered
// reports can be compared against golden files.
//
// # Usage
//
//	h, err := harness.New(harness.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	suite, _ := harness.DefaultSuite("hw2")
//	report, err := h.RunSuite(ctx, suite, harness.Candidates{
//	    "pg.gae": myGAE,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report.Render(os.Stdout)
package harness
