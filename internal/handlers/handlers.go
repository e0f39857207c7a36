package handlers

import (
	"database/sql"
	"errors"

	"storefront-api/internal/mailer"

	"github.com/go-sql-driver/mysql"
)

// Handlers holds the shared dependencies every handler needs.
type Handlers struct {
	DB     *sql.DB
	Mailer mailer.Mailer
}

// Querier is the subset of database/sql implemented by both *sql.DB
// and *sql.Tx, so lookup helpers work in and out of a transaction.
type Querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Execer is the write-side counterpart of Querier.
type Execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// isDuplicateEntry reports whether err is MySQL error 1062 (duplicate
// key). Check-then-insert guards race under concurrency; the losing
// insert surfaces here and must map to the same conflict response.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
