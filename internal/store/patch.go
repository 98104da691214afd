package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pipecraft/apiserver/internal/patch"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// applyPatch runs cs as a single UPDATE ... RETURNING statement and scans the
// post-mutation row. Column names come from a patch.Builder whitelist.
func applyPatch[T any](ctx context.Context, db *sql.DB, table, returning, id string, cs patch.Changeset, scan func(rowScanner) (T, error)) (T, error) {
	var zero T
	assignments := cs.Assignments()
	if len(assignments) == 0 {
		return zero, patch.ErrNoFields
	}

	sets := make([]string, 0, len(assignments))
	args := make([]any, 0, len(assignments)+1)
	for i, a := range assignments {
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(a.Column), i+1))
		args = append(args, sqlValue(a.Value))
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), returning,
	)
	record, err := scan(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, mapError(err)
	}
	return record, nil
}

func sqlValue(v any) any {
	switch v := v.(type) {
	case []string:
		if v == nil {
			v = []string{}
		}
		return pq.Array(v)
	default:
		return v
	}
}

func deleteByID(ctx context.Context, db *sql.DB, table, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
	result, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func getOne[T any](ctx context.Context, db *sql.DB, query string, scan func(rowScanner) (T, error), args ...any) (T, error) {
	record, err := scan(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return record, nil
}

func listAll[T any](ctx context.Context, db *sql.DB, query string, scan func(rowScanner) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		record, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// where accumulates AND-ed filter clauses with positional arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(column string, value any) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
