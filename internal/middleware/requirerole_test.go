package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/promptpilot/server/internal/domain"
)

type roleDB struct {
	rolesByUser map[string][]string
	failQuery   bool
}

func (d *roleDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec")
}

func (d *roleDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (d *roleDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	if d.failQuery {
		return nil, fmt.Errorf("store down")
	}
	return &roleRows{roles: d.rolesByUser[args[0].(string)]}, nil
}

type roleRows struct {
	roles []string
	idx   int
}

func (r *roleRows) Close()                                       {}
func (r *roleRows) Err() error                                   { return nil }
func (r *roleRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *roleRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *roleRows) RawValues() [][]byte                          { return nil }
func (r *roleRows) Values() ([]any, error)                       { return nil, fmt.Errorf("not supported") }
func (r *roleRows) Conn() *pgx.Conn                              { return nil }

func (r *roleRows) Next() bool {
	r.idx++
	return r.idx <= len(r.roles)
}

func (r *roleRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.roles[r.idx-1]
	return nil
}

func TestRequireRole(t *testing.T) {
	db := &roleDB{rolesByUser: map[string][]string{
		"admin-1": {"admin"},
		"root-1":  {"superadmin"},
		"user-1":  {},
	}}

	handler := RequireRole(db, domain.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		userID string
		want   int
	}{
		{name: "admin allowed", userID: "admin-1", want: http.StatusOK},
		{name: "superadmin allowed", userID: "root-1", want: http.StatusOK},
		{name: "plain user forbidden", userID: "user-1", want: http.StatusForbidden},
		{name: "unknown user forbidden", userID: "ghost", want: http.StatusForbidden},
		{name: "unauthenticated", userID: "", want: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(ContextWithUserID(req.Context(), tc.userID))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestRequireRoleStoreFailure(t *testing.T) {
	db := &roleDB{failQuery: true}
	handler := RequireRole(db, domain.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "admin-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
