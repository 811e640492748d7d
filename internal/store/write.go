package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRunExists is returned when a run ID is already recorded.
var ErrRunExists = errors.New("run already recorded")

// RunRecord describes one suite execution.
type RunRecord struct {
	ID             string
	Suite          string
	FixtureVersion string
	Strict         bool
	Seq            int64
}

// ResultRecord is one check verdict within a run.
type ResultRecord struct {
	RunID    string
	Seq      int64
	CheckID  string
	Kind     string
	Severity string
	Verdict  string
	Message  string
	Details  []string
}

// RecordRun writes a run and all of its results in one transaction. Each
// result is stored under run.ID. A run ID that is already recorded fails
// with ErrRunExists, and any failure leaves the ledger untouched.
func (s *Store) RecordRun(ctx context.Context, run RunRecord, results []ResultRecord) (err error) {
	if run.ID == "" {
		return fmt.Errorf("record run: empty run ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run %s: begin: %w", run.ID, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM runs WHERE id = ?)`, run.ID).Scan(&exists); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	if exists {
		return fmt.Errorf("record run %s: %w", run.ID, ErrRunExists)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, suite, fixture_version, strict, seq)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Suite, run.FixtureVersion, boolToInt(run.Strict), run.Seq)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	for _, r := range results {
		if err := insertResult(ctx, tx, run.ID, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run %s: commit: %w", run.ID, err)
	}
	return nil
}

func insertResult(ctx context.Context, tx *sql.Tx, runID string, r ResultRecord) error {
	details := r.Details
	if details == nil {
		details = []string{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results (run_id, seq, check_id, kind, severity, verdict, message, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, r.Seq, r.CheckID, r.Kind, r.Severity, r.Verdict, r.Message, string(detailsJSON))
	if err != nil {
		return fmt.Errorf("write result %s (run %s, seq %d): %w", r.CheckID, runID, r.Seq, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
