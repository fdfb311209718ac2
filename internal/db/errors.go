package db

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// IsConstraint reports whether err is a SQLite constraint violation
// (UNIQUE, NOT NULL or FOREIGN KEY) from either supported driver.
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.Code == sqlite3.ErrConstraint
	}
	var modernErr *sqlite.Error
	if errors.As(err, &modernErr) {
		return modernErr.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT
	}
	return false
}
