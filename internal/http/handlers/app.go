package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/promptpilot/server/internal/admin"
	"github.com/promptpilot/server/internal/billing"
	"github.com/promptpilot/server/internal/infra"
	"github.com/promptpilot/server/internal/middleware"
	"github.com/promptpilot/server/internal/prefs"
	"github.com/promptpilot/server/internal/providers/prompt"
)

// GoogleVerifier validates a Google ID token and returns its claims.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (map[string]any, error)
}

// App bundles the dependencies every handler needs.
type App struct {
	SQL            infra.SQLExecutor
	Logger         infra.Logger
	JWTSecret      string
	GoogleVerifier GoogleVerifier
	Billing        *billing.Client
	Credentials    *billing.Source
	Prefs          *prefs.Store
	Admin          *admin.Service
	Enhancer       prompt.Enhancer
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// providerError maps a billing failure onto the response: typed provider
// errors surface their code, everything else is a 502.
func (a *App) providerError(w http.ResponseWriter, err error) {
	var provErr *billing.ProviderError
	if errors.As(err, &provErr) {
		status := http.StatusBadGateway
		if provErr.StatusCode >= 400 && provErr.StatusCode < 500 {
			status = http.StatusUnprocessableEntity
		}
		a.error(w, status, "provider_error", provErr.Message)
		return
	}
	a.error(w, http.StatusBadGateway, "provider_error", "payment provider request failed")
}
