package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/promptpilot/server/internal/sqlinline"
)

type fakeGoogleVerifier struct {
	claims map[string]any
	err    error
}

func (f *fakeGoogleVerifier) VerifyIDToken(context.Context, string) (map[string]any, error) {
	return f.claims, f.err
}

func roleListRows(roles ...string) *listRows {
	scans := make([]func(dest ...any) error, 0, len(roles))
	for _, role := range roles {
		r := role
		scans = append(scans, func(dest ...any) error {
			*(dest[0].(*string)) = r
			return nil
		})
	}
	return &listRows{scans: scans}
}

func TestAuthGoogleVerifyIssuesToken(t *testing.T) {
	app := &App{
		Logger:    zerolog.Nop(),
		JWTSecret: "secret",
		GoogleVerifier: &fakeGoogleVerifier{claims: map[string]any{
			"sub":     "google-sub-1",
			"email":   "alice@example.com",
			"name":    "Alice",
			"picture": "https://example.com/a.png",
			"locale":  "en",
		}},
		SQL: &fakeSQL{
			queryRowFn: func(query string, args ...any) pgx.Row {
				if query != sqlinline.QUpsertGoogleUser {
					return stubRow{scan: func(...any) error { return fmt.Errorf("unexpected query row") }}
				}
				return stubRow{scan: func(dest ...any) error {
					*(dest[0].(*string)) = "user-1"
					*(dest[1].(*bool)) = false
					return nil
				}}
			},
			queryFn: func(query string, args ...any) (pgx.Rows, error) {
				return roleListRows("admin"), nil
			},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", strings.NewReader(`{"id_token":"tok"}`))
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body googleVerifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Token == "" {
		t.Fatal("token is empty")
	}
	if body.User.ID != "user-1" || body.User.Role != "admin" {
		t.Fatalf("user = %+v", body.User)
	}
}

func TestAuthGoogleVerifyRejectsDeletedAccount(t *testing.T) {
	app := &App{
		Logger:         zerolog.Nop(),
		JWTSecret:      "secret",
		GoogleVerifier: &fakeGoogleVerifier{claims: map[string]any{"sub": "google-sub-1", "email": "gone@example.com"}},
		SQL: &fakeSQL{
			queryRowFn: func(query string, args ...any) pgx.Row {
				return stubRow{scan: func(dest ...any) error {
					*(dest[0].(*string)) = "user-1"
					*(dest[1].(*bool)) = true
					return nil
				}}
			},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", strings.NewReader(`{"id_token":"tok"}`))
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if !strings.Contains(rec.Body.String(), "account_disabled") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAuthGoogleVerifyRejectsBadToken(t *testing.T) {
	app := &App{
		Logger:         zerolog.Nop(),
		GoogleVerifier: &fakeGoogleVerifier{err: fmt.Errorf("bad token")},
		SQL:            &fakeSQL{},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", strings.NewReader(`{"id_token":"tok"}`))
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthGoogleVerifyRequiresToken(t *testing.T) {
	app := &App{Logger: zerolog.Nop()}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
