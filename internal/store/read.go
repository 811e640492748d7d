package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ReadRun returns the run with the given ID, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	var run RunRecord
	var strict int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, suite, fixture_version, strict, seq
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Suite, &run.FixtureVersion, &strict, &run.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}
	run.Strict = strict != 0
	return run, nil
}

// ReadResults returns every verdict of a run in sequence order.
func (s *Store) ReadResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, check_id, kind, severity, verdict, message, details
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results for run %s: %w", runID, err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// ReadCheckHistory returns every recorded verdict for one check across
// runs, ordered by run then sequence.
func (s *Store) ReadCheckHistory(ctx context.Context, checkID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.seq, r.check_id, r.kind, r.severity, r.verdict, r.message, r.details
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE r.check_id = ?
		ORDER BY runs.seq ASC, r.seq ASC
	`, checkID)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", checkID, err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// CountVerdicts tallies the verdicts of a run.
func (s *Store) CountVerdicts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT verdict, COUNT(*)
		FROM results
		WHERE run_id = ?
		GROUP BY verdict
		ORDER BY verdict ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("count verdicts for run %s: %w", runID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var verdict string
		var n int
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, fmt.Errorf("scan verdict count: %w", err)
		}
		counts[verdict] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdict counts: %w", err)
	}
	return counts, nil
}

func scanResults(rows *sql.Rows) ([]ResultRecord, error) {
	var results []ResultRecord
	for rows.Next() {
		var r ResultRecord
		var details string
		if err := rows.Scan(&r.RunID, &r.Seq, &r.CheckID, &r.Kind, &r.Severity, &r.Verdict, &r.Message, &details); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &r.Details); err != nil {
			return nil, fmt.Errorf("unmarshal details for %s: %w", r.CheckID, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// MaxSeq returns the highest sequence number recorded in the ledger, or 0
// for an empty ledger.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM runs
			UNION ALL
			SELECT seq FROM results
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq, nil
}
