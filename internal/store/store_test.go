package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func verifyPragma(t *testing.T, db *sql.DB, name, want string) {
	t.Helper()
	var got string
	if err := db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		t.Fatalf("PRAGMA %s failed: %v", name, err)
	}
	if got != want {
		t.Errorf("PRAGMA %s = %q, want %q", name, got, want)
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Schema must survive across statements on the single connection
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/ledger.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	if _, err := Open(path); err == nil {
		t.Error("expected error for newer schema version, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := openTemp(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := openTemp(t)

	verifyPragma(t, s.db, "journal_mode", "wal")
	verifyPragma(t, s.db, "synchronous", "1")
	verifyPragma(t, s.db, "busy_timeout", "5000")
	verifyPragma(t, s.db, "foreign_keys", "1")
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := openTemp(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	run := RunRecord{ID: "run-1", Suite: "hw1", FixtureVersion: "v1", Strict: true, Seq: 1}
	if err := s.RecordRun(ctx, run, nil); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got != run {
		t.Errorf("ReadRun() = %+v, want %+v", got, run)
	}
}

func TestRecordRun_RejectsExistingID(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first := RunRecord{ID: "run-1", Suite: "hw1", FixtureVersion: "v1", Seq: 1}
	recordRun(t, s, first,
		ResultRecord{Seq: 2, CheckID: "oracle.reward", Kind: "range", Severity: "soft", Verdict: "pass"})

	second := RunRecord{ID: "run-1", Suite: "perf", FixtureVersion: "v1", Strict: true, Seq: 3}
	err := s.RecordRun(ctx, second, []ResultRecord{
		{Seq: 4, CheckID: "ucb.performance", Kind: "range", Severity: "soft", Verdict: "warning"},
	})
	if !errors.Is(err, ErrRunExists) {
		t.Fatalf("RecordRun() error = %v, want ErrRunExists", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got != first {
		t.Errorf("ReadRun() = %+v, want the first run %+v", got, first)
	}
	counts, err := s.CountVerdicts(ctx, "run-1")
	if err != nil {
		t.Fatalf("CountVerdicts() failed: %v", err)
	}
	if !reflect.DeepEqual(counts, map[string]int{"pass": 1}) {
		t.Errorf("CountVerdicts() = %v, want only the first run's verdict", counts)
	}
}

func TestRecordRun_EmptyID(t *testing.T) {
	s := openTemp(t)
	if err := s.RecordRun(context.Background(), RunRecord{Suite: "hw1"}, nil); err == nil {
		t.Error("expected error for empty run ID, got nil")
	}
}

func TestRecordRun_FailureWritesNothing(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	// Two results sharing a seq violate the primary key
	err := s.RecordRun(ctx, RunRecord{ID: "run-1", Suite: "hw2", FixtureVersion: "v1", Seq: 1}, []ResultRecord{
		{Seq: 2, CheckID: "pg.gae", Kind: "vector_tolerance", Severity: "hard", Verdict: "pass"},
		{Seq: 2, CheckID: "pg.discounted_return", Kind: "vector_tolerance", Severity: "hard", Verdict: "pass"},
	})
	if err == nil {
		t.Fatal("expected primary key error for duplicate seq, got nil")
	}

	if _, err := s.ReadRun(ctx, "run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrNotFound after rollback", err)
	}
	results, err := s.ReadResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadResults() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("ReadResults() returned %d results after rollback, want 0", len(results))
	}
}

func TestRecordRun_CancelledContext(t *testing.T) {
	s := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.RecordRun(ctx, RunRecord{ID: "run-1", Suite: "hw1"}, nil); err == nil {
		t.Error("expected error for cancelled context, got nil")
	}
	if _, err := s.ReadRun(context.Background(), "run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrNotFound", err)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := openTemp(t)

	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrNotFound", err)
	}
}

func TestReadResults_OrderedBySeq(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	// Insert out of order
	recordRun(t, s, RunRecord{ID: "run-1", Suite: "hw1", FixtureVersion: "v1", Seq: 1},
		ResultRecord{Seq: 4, CheckID: "ucb.update_q", Kind: "exact_sequence", Severity: "hard", Verdict: "fail",
			Message: "ERROR: Wrong answer for update_Q!", Details: []string{"step 4", "index 3"}},
		ResultRecord{Seq: 2, CheckID: "oracle.reward", Kind: "range", Severity: "soft", Verdict: "pass"},
		ResultRecord{Seq: 3, CheckID: "random.performance", Kind: "range", Severity: "soft", Verdict: "warning"},
	)

	results, err := s.ReadResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadResults() failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("ReadResults() returned %d results, want 3", len(results))
	}

	var ids []string
	for _, r := range results {
		ids = append(ids, r.CheckID)
	}
	want := []string{"oracle.reward", "random.performance", "ucb.update_q"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("check order = %v, want %v", ids, want)
	}

	if !reflect.DeepEqual(results[2].Details, []string{"step 4", "index 3"}) {
		t.Errorf("details = %v", results[2].Details)
	}
	if len(results[0].Details) != 0 {
		t.Errorf("expected no details, got %v", results[0].Details)
	}
}

func TestCountVerdicts(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	verdicts := []string{"pass", "pass", "warning", "fail", "skipped", "pass"}
	var results []ResultRecord
	for i, v := range verdicts {
		results = append(results, ResultRecord{Seq: int64(i + 2), CheckID: "c", Kind: "range", Severity: "soft", Verdict: v})
	}
	recordRun(t, s, RunRecord{ID: "run-1", Suite: "hw1", FixtureVersion: "v1", Seq: 1}, results...)

	counts, err := s.CountVerdicts(ctx, "run-1")
	if err != nil {
		t.Fatalf("CountVerdicts() failed: %v", err)
	}
	want := map[string]int{"pass": 3, "warning": 1, "fail": 1, "skipped": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("CountVerdicts() = %v, want %v", counts, want)
	}
}

func TestReadCheckHistory_AcrossRuns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	recordRun(t, s, RunRecord{ID: "run-b", Suite: "hw1", FixtureVersion: "v1", Seq: 10},
		ResultRecord{Seq: 11, CheckID: "oracle.reward", Kind: "range", Severity: "soft", Verdict: "warning"})
	recordRun(t, s, RunRecord{ID: "run-a", Suite: "hw1", FixtureVersion: "v1", Seq: 1},
		ResultRecord{Seq: 2, CheckID: "oracle.reward", Kind: "range", Severity: "soft", Verdict: "pass"},
		ResultRecord{Seq: 3, CheckID: "pg.gae", Kind: "vector_tolerance", Severity: "hard", Verdict: "pass"})

	history, err := s.ReadCheckHistory(ctx, "oracle.reward")
	if err != nil {
		t.Fatalf("ReadCheckHistory() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("ReadCheckHistory() returned %d results, want 2", len(history))
	}
	if history[0].RunID != "run-a" || history[1].RunID != "run-b" {
		t.Errorf("history order = [%s %s], want [run-a run-b]", history[0].RunID, history[1].RunID)
	}
}

func recordRun(t *testing.T, s *Store, run RunRecord, results ...ResultRecord) {
	t.Helper()
	if err := s.RecordRun(context.Background(), run, results); err != nil {
		t.Fatalf("RecordRun(%s) failed: %v", run.ID, err)
	}
}

func TestMaxSeq(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	seq, err := s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("MaxSeq() on empty ledger = %d, want 0", seq)
	}

	recordRun(t, s, RunRecord{ID: "run-1", Suite: "hw2", FixtureVersion: "v1", Seq: 1},
		ResultRecord{Seq: 7, CheckID: "pg.gae", Kind: "vector_tolerance", Severity: "hard", Verdict: "pass"})

	seq, err = s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 7 {
		t.Errorf("MaxSeq() = %d, want 7", seq)
	}
}
