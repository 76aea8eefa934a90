// Package store is the Postgres persistence layer: schema (see
// migrations/), and two disjoint session types — CoordinatorSession
// (events/tournaments/status rows) and WriterSession (snapshots/
// markets/alerts). They never share a *sql.Tx, preventing commit
// interference between the coordinator and the write-queue worker.
//
// Queries are raw SQL over database/sql + lib/pq, no ORM.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open opens a *sql.DB against dsn using the lib/pq driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return db, nil
}

// IntegrityError wraps a Postgres unique/foreign-key violation detected
// by the write queue: these are dropped, never retried.
type IntegrityError struct {
	Cause error
}

func (e *IntegrityError) Error() string { return fmt.Sprintf("integrity error: %v", e.Cause) }
func (e *IntegrityError) Unwrap() error  { return e.Cause }

// OperationalError wraps a transient Postgres error (connection/pool)
// that the write queue retries with backoff.
type OperationalError struct {
	Cause error
}

func (e *OperationalError) Error() string { return fmt.Sprintf("operational error: %v", e.Cause) }
func (e *OperationalError) Unwrap() error  { return e.Cause }

// ClassifyError wraps a raw *pq.Error (or other DB error) into the
// IntegrityError/OperationalError taxonomy the write queue dispatches on.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if isIntegrityViolation(err) {
		return &IntegrityError{Cause: err}
	}
	return &OperationalError{Cause: err}
}
