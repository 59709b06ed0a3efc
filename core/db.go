package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext

		Exec(query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}

	// TxRunner runs fn inside a single transaction, committed if fn returns nil and rolled back otherwise.
	TxRunner interface {
		RunInTx(ctx context.Context, fn func(tx DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrdering drops the orderings on fields that are not allowed.
// Order fields end up in raw SQL, so only whitelisted column names may pass.
func FilterOrdering(ordering []DBOrdering, allowed ...string) []DBOrdering {
	if ordering == nil {
		return nil
	}
	filtered := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if StringsContain(allowed, ord.Field) {
			filtered = append(filtered, ord)
		}
	}
	return filtered
}
