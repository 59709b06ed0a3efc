// Package sqlxrepos implements the domain repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// repository holds the default executor of every sqlx repository.
type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo repository) get(ctx context.Context, exec []core.DBExecutor, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return repo.getExec(exec).GetContext(ctx, dest, query, args...)
}

func (repo repository) selectAll(ctx context.Context, exec []core.DBExecutor, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return repo.getExec(exec).SelectContext(ctx, dest, query, args...)
}

func (repo repository) execute(ctx context.Context, exec []core.DBExecutor, b sq.Sqlizer) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.getExec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// uniqueViolation returns the name of the violated unique constraint, if any.
func uniqueViolation(err error) (string, bool) {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validUUIDs drops the ids postgres would reject as malformed.
func validUUIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validUUID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

// orderBy adds the whitelisted orderings to b, falling back to defaults.
func orderBy(b sq.SelectBuilder, ordering []core.DBOrdering, allowed []string, defaults ...string) sq.SelectBuilder {
	ordering = core.FilterOrdering(ordering, allowed...)
	if len(ordering) == 0 {
		return b.OrderBy(defaults...)
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return b.OrderBy(clauses...)
}

func likeAny(cols []string, val string) sq.Or {
	val = "%" + strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(val) + "%"
	or := make(sq.Or, 0, len(cols))
	for _, c := range cols {
		or = append(or, sq.ILike{c: val})
	}
	return or
}

// fkViolation reports whether err is a foreign key violation, i.e. a missing referenced row.
func fkViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23503"
}
