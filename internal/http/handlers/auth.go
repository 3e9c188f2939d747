package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/middleware"
	"github.com/promptpilot/server/internal/sqlinline"
)

type googleVerifyRequest struct {
	IDToken string `json:"id_token"`
}

type googleVerifyResponse struct {
	Token string         `json:"token"`
	User  userProfileDTO `json:"user"`
}

type userProfileDTO struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Picture string   `json:"picture,omitempty"`
	Locale  string   `json:"locale"`
	Role    string   `json:"role"`
	Roles   []string `json:"roles"`
}

func (a *App) AuthGoogleVerify(w http.ResponseWriter, r *http.Request) {
	var req googleVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.IDToken == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id_token required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	claims, err := a.GoogleVerifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		a.Logger.Error().Err(err).Msg("google verify failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid google token")
		return
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	locale, _ := claims["locale"].(string)
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}

	var userID string
	var deleted bool
	row := a.SQL.QueryRow(r.Context(), sqlinline.QUpsertGoogleUser, sub, email, name, picture, locale)
	if err := row.Scan(&userID, &deleted); err != nil {
		a.Logger.Error().Err(err).Msg("upsert user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist user")
		return
	}
	if deleted {
		a.error(w, http.StatusForbidden, "account_disabled", "this account has been deactivated")
		return
	}

	roles, err := a.userRoles(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("load roles failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load roles")
		return
	}
	effective := domain.HighestRole(roles)

	token, err := middleware.SignJWT(a.JWTSecret, middleware.TokenClaims{
		Sub:      userID,
		Role:     string(effective),
		Locale:   locale,
		Exp:      time.Now().Add(24 * time.Hour).Unix(),
		Issuer:   "promptpilot",
		Audience: "promptpilot-clients",
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	a.json(w, http.StatusOK, googleVerifyResponse{
		Token: token,
		User: userProfileDTO{
			ID:      userID,
			Email:   email,
			Name:    name,
			Picture: picture,
			Locale:  locale,
			Role:    string(effective),
			Roles:   roleStrings(roles),
		},
	})
}

type meResponse struct {
	User         userProfileDTO   `json:"user"`
	Subscription *subscriptionDTO `json:"subscription"`
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var u domain.User
	row := a.SQL.QueryRow(r.Context(), sqlinline.QSelectUserByID, userID)
	if err := row.Scan(&u.ID, &u.GoogleSub, &u.Email, &u.Name, &u.Picture, &u.Locale, &u.Deleted, &u.LastSeenAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	if u.Deleted {
		a.error(w, http.StatusForbidden, "account_disabled", "this account has been deactivated")
		return
	}

	if _, err := a.SQL.Exec(r.Context(), sqlinline.QTouchLastSeen, userID); err != nil {
		a.Logger.Warn().Err(err).Msg("touch last seen failed")
	}

	roles, err := a.userRoles(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("load roles failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load roles")
		return
	}

	// subscription state is a best-effort enrichment here
	var subDTO *subscriptionDTO
	if sub, err := a.activeSubscription(r.Context(), userID); err == nil && sub != nil {
		subDTO = newSubscriptionDTO(*sub, time.Now().UTC())
	}

	a.json(w, http.StatusOK, meResponse{
		User: userProfileDTO{
			ID:      u.ID,
			Email:   u.Email,
			Name:    u.Name,
			Picture: u.Picture,
			Locale:  u.Locale,
			Role:    string(domain.HighestRole(roles)),
			Roles:   roleStrings(roles),
		},
		Subscription: subDTO,
	})
}

func (a *App) userRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := a.SQL.Query(ctx, sqlinline.QSelectUserRoles, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if role, ok := domain.ParseRole(raw); ok {
			roles = append(roles, role)
		}
	}
	return roles, rows.Err()
}

func roleStrings(roles []domain.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
