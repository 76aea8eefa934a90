package store

import (
	"errors"

	"github.com/lib/pq"
)

// isIntegrityViolation reports whether err is a Postgres constraint
// violation, i.e. any SQLSTATE in class 23 (unique_violation 23505,
// foreign_key_violation 23503, not_null_violation 23502,
// check_violation 23514 and the rest of the class), as opposed to a
// transient connection/pool error.
func isIntegrityViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity_constraint_violation
			return true
		}
	}
	return false
}
