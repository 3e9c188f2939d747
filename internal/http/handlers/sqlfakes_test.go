package handlers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeSQL routes statements to per-test hooks. Unset hooks fail loudly so a
// test never silently swallows an unexpected statement.
type fakeSQL struct {
	execFn     func(query string, args ...any) (pgconn.CommandTag, error)
	queryRowFn func(query string, args ...any) pgx.Row
	queryFn    func(query string, args ...any) (pgx.Rows, error)
}

func (f *fakeSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if f.execFn == nil {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %.40s", query)
	}
	return f.execFn(query, args...)
}

func (f *fakeSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if f.queryRowFn == nil {
		return stubRow{scan: func(...any) error {
			return fmt.Errorf("unexpected query row: %.40s", query)
		}}
	}
	return f.queryRowFn(query, args...)
}

func (f *fakeSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if f.queryFn == nil {
		return nil, fmt.Errorf("unexpected query: %.40s", query)
	}
	return f.queryFn(query, args...)
}

// stubRow yields a single row through its scan hook; a nil hook reads as no rows.
type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// listRows walks a fixed list of scan hooks and satisfies pgx.Rows; the
// accessor methods handlers never touch return zero values.
type listRows struct {
	scans []func(dest ...any) error
	idx   int
}

func (r *listRows) Close() {}

func (r *listRows) Err() error { return nil }

func (r *listRows) Next() bool {
	r.idx++
	return r.idx <= len(r.scans)
}

func (r *listRows) Scan(dest ...any) error {
	return r.scans[r.idx-1](dest...)
}

func (r *listRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *listRows) Conn() *pgx.Conn { return nil }

func (r *listRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *listRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (r *listRows) RawValues() [][]byte { return nil }
