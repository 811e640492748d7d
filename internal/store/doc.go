// Package store provides the SQLite-backed verdict ledger for grading runs.
//
// The ledger is append-only:
//   - Runs: one record per suite execution (run ID, suite, fixture version,
//     policy)
//   - Results: one record per check verdict, ordered by a logical sequence
//     number
//
// RecordRun writes a run together with its results in one transaction, so
// a run is either fully recorded or absent, and a run ID is never reused.
//
// A harness opens its own ledger, ":memory:" unless configured otherwise,
// so runs never share state. Reads are always ordered by seq so that
// reports rebuilt from the ledger are deterministic.
//
// # Database Configuration
//
//   - WAL mode for file-backed ledgers
//   - synchronous=NORMAL: Safe with WAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: results must reference a run
//   - a single connection, which also keeps ":memory:" databases alive
package store
