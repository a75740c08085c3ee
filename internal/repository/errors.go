package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("event not found")

type ConstraintKind string

const (
	// ConstraintDuplicateHash: insert without reuse hit an existing hash.
	ConstraintDuplicateHash ConstraintKind = "duplicate_hash"
	// ConstraintMissingDependency: depends_on references a nonexistent event.
	ConstraintMissingDependency ConstraintKind = "missing_dependency"
	// ConstraintReuseBlocked: reuse would reassign the id of a row that
	// another event still depends on.
	ConstraintReuseBlocked ConstraintKind = "reuse_blocked"
)

// ConstraintError is a store constraint violation surfaced to the caller.
type ConstraintError struct {
	Kind ConstraintKind
}

func (e *ConstraintError) Error() string {
	switch e.Kind {
	case ConstraintDuplicateHash:
		return "event with same hash already exists"
	case ConstraintMissingDependency:
		return "event depends on non-existing event"
	case ConstraintReuseBlocked:
		return "unable to reuse the event, another event depends on it"
	}
	return "constraint violation"
}

// IsConstraint reports whether err is any store constraint violation.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// MySQL server error numbers.
const (
	mysqlErrDupEntry  = 1062
	mysqlErrRowIsRefd = 1451 // cannot update parent row, children exist
	mysqlErrNoRefdRow = 1452 // cannot add child row, parent missing
)

// mapWriteError converts MySQL constraint errors on the events table into
// the typed taxonomy. Anything else passes through unchanged.
func mapWriteError(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlErrDupEntry:
		return &ConstraintError{Kind: ConstraintDuplicateHash}
	case mysqlErrNoRefdRow:
		return &ConstraintError{Kind: ConstraintMissingDependency}
	case mysqlErrRowIsRefd:
		return &ConstraintError{Kind: ConstraintReuseBlocked}
	}
	return err
}
