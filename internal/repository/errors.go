// Package repository defines the SQL data access layer and the error
// values shared across repositories.  These sentinel values allow higher
// layers such as services and handlers to distinguish an expected miss
// from a store failure.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row, or when a write
// references a parent row (user, habit) that does not exist.
var ErrNotFound = errors.New("not found")

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

// mysqlErrNumber returns the server error number carried by err, or 0.
func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// notFound maps sql.ErrNoRows and foreign key misses to ErrNotFound and
// leaves every other error untouched.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || mysqlErrNumber(err) == mysqlNoReferencedRow {
		return ErrNotFound
	}
	return err
}
