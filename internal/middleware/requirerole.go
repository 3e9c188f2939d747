package middleware

import (
	"net/http"

	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/infra"
	"github.com/promptpilot/server/internal/sqlinline"
)

// RequireRole gates a subtree on a minimum role. Roles are re-read from the
// store on every request so a revocation takes effect immediately, not at
// token expiry.
func RequireRole(sql infra.SQLExecutor, min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}

			rows, err := sql.Query(r.Context(), sqlinline.QSelectUserRoles, userID)
			if err != nil {
				http.Error(w, "role lookup failed", http.StatusInternalServerError)
				return
			}
			var roles []domain.Role
			for rows.Next() {
				var raw string
				if err := rows.Scan(&raw); err != nil {
					rows.Close()
					http.Error(w, "role lookup failed", http.StatusInternalServerError)
					return
				}
				if role, ok := domain.ParseRole(raw); ok {
					roles = append(roles, role)
				}
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				http.Error(w, "role lookup failed", http.StatusInternalServerError)
				return
			}

			if !domain.HighestRole(roles).AtLeast(min) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
