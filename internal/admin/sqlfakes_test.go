package admin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/sqlinline"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

type scanRows struct {
	testRowsBase
	scans []func(dest ...any) error
	idx   int
}

func (r *scanRows) Close() {}

func (r *scanRows) Err() error { return nil }

func (r *scanRows) Next() bool {
	r.idx++
	return r.idx <= len(r.scans)
}

func (r *scanRows) Scan(dest ...any) error {
	return r.scans[r.idx-1](dest...)
}

func scanUserRow(u domain.User) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = u.ID
		*(dest[1].(*string)) = u.GoogleSub
		*(dest[2].(*string)) = u.Email
		*(dest[3].(*string)) = u.Name
		*(dest[4].(*string)) = u.Picture
		*(dest[5].(*string)) = u.Locale
		*(dest[6].(*bool)) = u.Deleted
		*(dest[7].(**time.Time)) = u.LastSeenAt
		*(dest[8].(*time.Time)) = u.CreatedAt
		*(dest[9].(*time.Time)) = u.UpdatedAt
		return nil
	}
}

// fakeDB is an in-memory SQLExecutor keyed on the sqlinline statements the
// admin service issues.
type fakeDB struct {
	mu    sync.Mutex
	users map[string]*domain.User
	roles map[string][]string

	audits []string

	// when set, soft deletes block until the channel closes
	deleteGate chan struct{}
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users: make(map[string]*domain.User),
		roles: make(map[string][]string),
	}
}

func (f *fakeDB) addUser(u domain.User, roles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := u
	f.users[u.ID] = &copied
	f.roles[u.ID] = roles
}

func (f *fakeDB) auditActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.audits...)
}

func (f *fakeDB) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	switch query {
	case sqlinline.QInsertAuditEvent:
		f.mu.Lock()
		f.audits = append(f.audits, args[1].(string))
		f.mu.Unlock()
		return pgconn.CommandTag{}, nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %.40s", query)
}

func (f *fakeDB) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	switch query {
	case sqlinline.QSoftDeleteUser:
		if f.deleteGate != nil {
			<-f.deleteGate
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.users[args[0].(string)]
		if !ok || u.Deleted {
			return simpleRow{}
		}
		u.Deleted = true
		return simpleRow{scan: func(dest ...any) error {
			*(dest[0].(*string)) = u.ID
			return nil
		}}
	case sqlinline.QUpdateUserProfile:
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.users[args[0].(string)]
		if !ok {
			return simpleRow{}
		}
		u.Name = args[1].(string)
		u.Email = args[2].(string)
		return simpleRow{scan: func(dest ...any) error {
			*(dest[0].(*string)) = u.ID
			return nil
		}}
	case sqlinline.QSelectUserByID:
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.users[args[0].(string)]
		if !ok {
			return simpleRow{}
		}
		return simpleRow{scan: scanUserRow(*u)}
	case sqlinline.QStatsSummary:
		return simpleRow{scan: func(dest ...any) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			var total, deleted int64
			for _, u := range f.users {
				total++
				if u.Deleted {
					deleted++
				}
			}
			*(dest[0].(*int64)) = total
			*(dest[1].(*int64)) = deleted
			*(dest[2].(*int64)) = 0
			*(dest[3].(*int64)) = 0
			*(dest[4].(*int64)) = 0
			*(dest[5].(*int64)) = 0
			return nil
		}}
	}
	return simpleRow{scan: func(...any) error {
		return fmt.Errorf("unexpected query row: %.40s", query)
	}}
}

func (f *fakeDB) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch query {
	case sqlinline.QListUsers:
		var scans []func(dest ...any) error
		for _, u := range f.users {
			scans = append(scans, scanUserRow(*u))
		}
		return &scanRows{scans: scans}, nil
	case sqlinline.QSelectAllUserRoles:
		var scans []func(dest ...any) error
		for userID, roles := range f.roles {
			for _, role := range roles {
				id, r := userID, role
				scans = append(scans, func(dest ...any) error {
					*(dest[0].(*string)) = id
					*(dest[1].(*string)) = r
					return nil
				})
			}
		}
		return &scanRows{scans: scans}, nil
	case sqlinline.QSelectUserRoles:
		var scans []func(dest ...any) error
		for _, role := range f.roles[args[0].(string)] {
			r := role
			scans = append(scans, func(dest ...any) error {
				*(dest[0].(*string)) = r
				return nil
			})
		}
		return &scanRows{scans: scans}, nil
	}
	return nil, fmt.Errorf("unexpected query: %.40s", query)
}
