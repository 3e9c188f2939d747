// Package httpapi assembles the chi router: middleware stack, public routes,
// authenticated routes and the admin subtree.
package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/http/handlers"
	"github.com/promptpilot/server/internal/infra"
	"github.com/promptpilot/server/internal/middleware"
)

type Options struct {
	Config        *infra.Config
	Logger        infra.Logger
	CountryLookup middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.Config.CORSAllowedOrigins),
		middleware.I18N("en", opts.CountryLookup),
		middleware.RateLimit(opts.Config.RateLimitPerMin, time.Minute),
	)

	// Public
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/plans", app.PlansList)
	r.Post("/v1/auth/google", app.AuthGoogleVerify)
	r.Post("/v1/webhooks/stripe", app.StripeWebhook)

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.Config.JWTSecret))

		r.Get("/v1/me", app.Me)
		r.Get("/v1/subscription", app.SubscriptionGet)

		r.Route("/v1/billing", func(r chi.Router) {
			r.Post("/checkout-session", app.BillingCheckoutSession)
			r.Post("/portal-session", app.BillingPortalSession)
			r.Get("/payment-method", app.BillingPaymentMethodGet)
			r.Post("/payment-method", app.BillingPaymentMethodUpdate)
			r.Post("/cancel", app.BillingCancel)
			r.Post("/change-plan", app.BillingChangePlan)
		})

		r.Post("/v1/prompts/enhance", app.PromptEnhance)

		r.Route("/v1/prefs", func(r chi.Router) {
			r.Get("/sidebar", app.PrefsSidebarGet)
			r.Put("/sidebar", app.PrefsSidebarPut)
		})

		// Admin routes re-check roles against the store on every request.
		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(app.SQL, domain.RoleAdmin))

			r.Get("/users", app.AdminUsersList)
			r.Patch("/users/{id}", app.AdminUserUpdate)
			r.Delete("/users/{id}", app.AdminUserDelete)
			r.Post("/users/bulk-delete", app.AdminUsersBulkDelete)
			r.Get("/stats", app.AdminStats)
			r.Get("/billing/mode", app.BillingModeGet)
			r.Put("/billing/mode", app.BillingModeSet)
		})
	})

	return r
}
