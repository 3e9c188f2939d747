package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/promptpilot/server/internal/billing"
	"github.com/promptpilot/server/internal/sqlinline"
)

const (
	webhookMaxBody   = 1 << 20
	webhookTolerance = 5 * time.Minute
)

// StripeWebhook verifies and applies provider events. Every verified event is
// persisted; subscription events additionally update the local projection,
// which makes webhook-confirmed data the only writer of subscription rows.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookMaxBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable payload")
		return
	}

	candidates, err := a.Credentials.WebhookCandidates(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("resolve billing credentials failed")
		a.error(w, http.StatusInternalServerError, "internal", "billing unavailable")
		return
	}

	// Events are signed with the secret of the mode they originated in, which
	// may not be the persisted mode. Try the current mode's secret first, then
	// the other configured one; the matching set decides the price table.
	sigHeader := r.Header.Get("Stripe-Signature")
	var creds billing.Credentials
	var sigErr error
	for _, c := range candidates {
		if sigErr = billing.VerifySignature(c.WebhookSecret, payload, sigHeader, webhookTolerance, time.Now()); sigErr == nil {
			creds = c
			break
		}
	}
	if sigErr != nil {
		a.Logger.Warn().Err(sigErr).Msg("webhook signature rejected")
		a.error(w, http.StatusBadRequest, "invalid_signature", "signature verification failed")
		return
	}

	event, err := billing.ParseEvent(payload)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "malformed event")
		return
	}

	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertBillingEvent, event.ID, event.Type, payload); err != nil {
		a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("persist billing event failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist event")
		return
	}

	switch {
	case event.Type == "customer.subscription.deleted":
		a.applySubscriptionDeleted(w, r, event)
	case strings.HasPrefix(event.Type, "customer.subscription."):
		a.applySubscriptionUpdate(w, r, event, creds)
	default:
		a.Logger.Debug().Str("type", event.Type).Msg("webhook event ignored")
		a.json(w, http.StatusOK, map[string]bool{"received": true})
	}
}

func (a *App) applySubscriptionUpdate(w http.ResponseWriter, r *http.Request, event *billing.Event, creds billing.Credentials) {
	sub, err := event.DecodeSubscription()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "malformed subscription object")
		return
	}

	userID := sub.Metadata["user_id"]
	if userID == "" {
		a.Logger.Warn().Str("event_id", event.ID).Msg("subscription event without user metadata")
		a.json(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	planID, isAnnual, ok := creds.PlanForPrice(sub.PriceID())
	if !ok {
		a.Logger.Warn().Str("price_id", sub.PriceID()).Msg("subscription event with unknown price")
		a.json(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	_, err = a.SQL.Exec(r.Context(), sqlinline.QUpsertSubscriptionFromEvent,
		userID, planID, isAnnual, sub.Status,
		unixToTime(sub.TrialEnd), unixToTime(sub.CurrentPeriodEnd),
		sub.CustomerID, sub.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("apply subscription event failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to apply event")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}

func (a *App) applySubscriptionDeleted(w http.ResponseWriter, r *http.Request, event *billing.Event) {
	sub, err := event.DecodeSubscription()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "malformed subscription object")
		return
	}
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QMarkSubscriptionCanceledByProviderID, sub.ID); err != nil {
		a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("mark subscription canceled failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to apply event")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}

func unixToTime(v int64) *time.Time {
	if v == 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}
