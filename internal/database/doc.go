// Package database provides SQLite-based storage for crawl run history.
//
// This package implements the HistoryDB, which stores:
//   - One row per saved run, keyed by the root seed URL
//   - One row per checked link, with status and failure detail
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Only completed results are stored. The crawl frontier and visited set
// never touch disk; an interrupted run is simply not saved.
package database
