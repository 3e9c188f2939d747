package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/promptpilot/server/internal/billing"
	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/sqlinline"
)

type checkoutSessionRequest struct {
	PlanID     string `json:"plan_id"`
	IsAnnual   bool   `json:"is_annual"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// BillingCheckoutSession creates a hosted checkout session for a new
// subscription. The subscription row itself is only written once the
// provider confirms via webhook.
func (a *App) BillingCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req checkoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if _, ok := domain.PlanByID(req.PlanID); !ok {
		a.error(w, http.StatusBadRequest, "unknown_plan", "plan_id must be pro or elite")
		return
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "success_url and cancel_url required")
		return
	}

	creds, err := a.Credentials.Current(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("resolve billing credentials failed")
		a.error(w, http.StatusInternalServerError, "internal", "billing unavailable")
		return
	}
	priceID, ok := creds.PriceFor(req.PlanID, req.IsAnnual)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "price not configured for plan")
		return
	}

	var email string
	var u domain.User
	row := a.SQL.QueryRow(r.Context(), sqlinline.QSelectUserByID, userID)
	if err := row.Scan(&u.ID, &u.GoogleSub, &u.Email, &u.Name, &u.Picture, &u.Locale, &u.Deleted, &u.LastSeenAt, &u.CreatedAt, &u.UpdatedAt); err == nil {
		email = u.Email
	}

	session, err := a.Billing.CreateCheckoutSession(r.Context(), billing.CheckoutRequest{
		PriceID:           priceID,
		CustomerEmail:     email,
		ClientReferenceID: userID,
		SuccessURL:        req.SuccessURL,
		CancelURL:         req.CancelURL,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("create checkout session failed")
		a.providerError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": session.ID, "url": session.URL})
}

type portalSessionRequest struct {
	ReturnURL string `json:"return_url"`
}

// BillingPortalSession returns a pre-authenticated billing portal link for
// the caller's provider customer.
func (a *App) BillingPortalSession(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req portalSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	sub, err := a.activeSubscription(r.Context(), userID)
	if err != nil || sub == nil || sub.ProviderCustomerID == "" {
		a.error(w, http.StatusNotFound, "no_subscription", "no active subscription")
		return
	}

	session, err := a.Billing.CreatePortalSession(r.Context(), sub.ProviderCustomerID, req.ReturnURL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("create portal session failed")
		a.providerError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"url": session.URL})
}

// BillingPaymentMethodGet proxies the customer's default payment method. The
// card view is never stored locally.
func (a *App) BillingPaymentMethodGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	sub, err := a.activeSubscription(r.Context(), userID)
	if err != nil || sub == nil || sub.ProviderCustomerID == "" {
		a.error(w, http.StatusNotFound, "no_subscription", "no active subscription")
		return
	}

	method, err := a.Billing.DefaultPaymentMethod(r.Context(), sub.ProviderCustomerID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("fetch payment method failed")
		a.providerError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"payment_method": method})
}

type paymentMethodUpdateRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

// BillingPaymentMethodUpdate attaches a new payment method and makes it the
// customer's default.
func (a *App) BillingPaymentMethodUpdate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req paymentMethodUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentMethodID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "payment_method_id required")
		return
	}

	sub, err := a.activeSubscription(r.Context(), userID)
	if err != nil || sub == nil || sub.ProviderCustomerID == "" {
		a.error(w, http.StatusNotFound, "no_subscription", "no active subscription")
		return
	}

	if err := a.Billing.AttachPaymentMethod(r.Context(), sub.ProviderCustomerID, req.PaymentMethodID); err != nil {
		a.Logger.Error().Err(err).Msg("attach payment method failed")
		a.providerError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"updated": true})
}

// BillingCancel asks the provider to end the subscription at the current
// period, then marks the local projection canceled.
func (a *App) BillingCancel(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	sub, err := a.activeSubscription(r.Context(), userID)
	if err != nil || sub == nil {
		a.error(w, http.StatusNotFound, "no_subscription", "no active subscription")
		return
	}

	if sub.ProviderSubscriptionID != "" {
		if err := a.Billing.CancelAtPeriodEnd(r.Context(), sub.ProviderSubscriptionID); err != nil {
			a.Logger.Error().Err(err).Msg("provider cancel failed")
			a.providerError(w, err)
			return
		}
	}
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QMarkSubscriptionCanceled, userID); err != nil {
		a.Logger.Error().Err(err).Msg("mark subscription canceled failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to update subscription")
		return
	}

	props, _ := json.Marshal(map[string]any{"plan_id": sub.PlanID, "is_annual": sub.IsAnnual})
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertAuditEvent, userID, "billing.cancel", nil, props); err != nil {
		a.Logger.Error().Err(err).Msg("audit write failed")
	}
	a.json(w, http.StatusOK, map[string]string{"status": "canceled"})
}

type changePlanRequest struct {
	PlanID   string `json:"plan_id"`
	IsAnnual bool   `json:"is_annual"`
}

// BillingChangePlan swaps the provider subscription to a new plan or
// interval. The local projection is untouched; the provider confirms the
// change through the webhook.
func (a *App) BillingChangePlan(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req changePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if _, ok := domain.PlanByID(req.PlanID); !ok {
		a.error(w, http.StatusBadRequest, "unknown_plan", "plan_id must be pro or elite")
		return
	}

	sub, err := a.activeSubscription(r.Context(), userID)
	if errors.Is(err, domain.ErrMultipleSubscriptions) {
		a.Logger.Error().Str("user_id", userID).Msg("multiple active subscriptions")
		a.error(w, http.StatusConflict, "conflict", "subscription state inconsistent")
		return
	}
	if err != nil || sub == nil || sub.ProviderSubscriptionID == "" {
		a.error(w, http.StatusNotFound, "no_subscription", "no active subscription")
		return
	}
	if sub.PlanID == req.PlanID && sub.IsAnnual == req.IsAnnual {
		a.error(w, http.StatusBadRequest, "bad_request", "already on that plan")
		return
	}

	creds, err := a.Credentials.Current(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("resolve billing credentials failed")
		a.error(w, http.StatusInternalServerError, "internal", "billing unavailable")
		return
	}
	priceID, ok := creds.PriceFor(req.PlanID, req.IsAnnual)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "price not configured for plan")
		return
	}

	if err := a.Billing.UpdateSubscriptionPrice(r.Context(), sub.ProviderSubscriptionID, priceID); err != nil {
		a.Logger.Error().Err(err).Msg("change plan failed")
		a.providerError(w, err)
		return
	}

	props, _ := json.Marshal(map[string]any{
		"plan_id":        req.PlanID,
		"is_annual":      req.IsAnnual,
		"from_plan_id":   sub.PlanID,
		"from_is_annual": sub.IsAnnual,
	})
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertAuditEvent, userID, "billing.plan.change", nil, props); err != nil {
		a.Logger.Error().Err(err).Msg("audit write failed")
	}
	a.json(w, http.StatusOK, map[string]string{"status": "pending_provider_confirmation"})
}

// BillingModeGet reports whether billing runs in test mode.
func (a *App) BillingModeGet(w http.ResponseWriter, r *http.Request) {
	testMode, err := a.Prefs.BillingTestMode(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("read billing mode failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read billing mode")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"test_mode": testMode})
}

type billingModeRequest struct {
	TestMode *bool `json:"test_mode"`
}

// BillingModeSet flips the persisted test-mode flag and refreshes the
// credential resolver so the change applies without waiting out the TTL.
func (a *App) BillingModeSet(w http.ResponseWriter, r *http.Request) {
	var req billingModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TestMode == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "test_mode required")
		return
	}

	if err := a.Prefs.SetBillingTestMode(r.Context(), *req.TestMode); err != nil {
		a.Logger.Error().Err(err).Msg("write billing mode failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to update billing mode")
		return
	}
	if _, err := a.Credentials.Refresh(r.Context()); err != nil {
		a.Logger.Error().Err(err).Msg("refresh billing credentials failed")
		a.error(w, http.StatusInternalServerError, "internal", "billing mode updated but credentials missing")
		return
	}

	mode := "live"
	if *req.TestMode {
		mode = "test"
	}
	props, _ := json.Marshal(map[string]string{"mode": mode})
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertAuditEvent, a.currentUserID(r), "billing.mode.set", nil, props); err != nil {
		a.Logger.Error().Err(err).Msg("audit write failed")
	}
	a.json(w, http.StatusOK, map[string]bool{"test_mode": *req.TestMode})
}
