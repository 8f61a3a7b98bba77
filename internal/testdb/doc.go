//go:build integration

// Package testdb provides helpers for database integration tests.
//
// Tests run against the database named by EVENTHOST_TEST_DB_URL and are skipped
// when it is unset. Migrations are applied once per test binary. Each test runs in
// its own transaction which is rolled back when the test completes, so tests can
// share tables without cleaning up after themselves.
//
// Basic usage:
//
//	func TestSomething(t *testing.T) {
//		db := testdb.Open(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			journal := postgres.NewPostgresJournal(tx)
//			// ...
//		})
//	}
package testdb
