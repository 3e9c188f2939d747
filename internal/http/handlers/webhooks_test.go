package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/promptpilot/server/internal/billing"
	"github.com/promptpilot/server/internal/infra"
	"github.com/promptpilot/server/internal/sqlinline"
)

const (
	testWebhookSecret = "whsec_test"
	liveWebhookSecret = "whsec_live"
)

func webhookApp(sql *fakeSQL) *App {
	source := billing.NewSource(&infra.Config{
		StripeTestSecretKey:     "sk_test",
		StripeTestWebhookSecret: testWebhookSecret,
		StripeTestPrices: map[string]string{
			"pro_monthly": "price_pro_m",
			"pro_annual":  "price_pro_y",
		},
		StripeLiveSecretKey:     "sk_live",
		StripeLiveWebhookSecret: liveWebhookSecret,
		StripeLivePrices: map[string]string{
			"pro_monthly": "price_live_pro_m",
		},
	}, nil)
	return &App{Logger: zerolog.Nop(), SQL: sql, Credentials: source}
}

func signedWebhookRequest(t *testing.T, payload string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", billing.SignPayload(testWebhookSecret, []byte(payload), time.Now()))
	return req
}

func TestStripeWebhookAppliesSubscriptionUpdate(t *testing.T) {
	var persisted []string
	var upsertArgs []any
	sql := &fakeSQL{
		execFn: func(query string, args ...any) (pgconn.CommandTag, error) {
			switch query {
			case sqlinline.QInsertBillingEvent:
				persisted = append(persisted, args[0].(string))
			case sqlinline.QUpsertSubscriptionFromEvent:
				upsertArgs = args
			default:
				return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %.40s", query)
			}
			return pgconn.CommandTag{}, nil
		},
	}
	app := webhookApp(sql)

	payload := `{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"status": "trialing",
			"customer": "cus_1",
			"current_period_end": 1767225600,
			"trial_end": 1766620800,
			"items": {"data": [{"id": "si_1", "price": {"id": "price_pro_y"}}]},
			"metadata": {"user_id": "user-7"}
		}}
	}`

	rec := httptest.NewRecorder()
	app.StripeWebhook(rec, signedWebhookRequest(t, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if len(persisted) != 1 || persisted[0] != "evt_1" {
		t.Fatalf("persisted events = %v", persisted)
	}
	if len(upsertArgs) != 8 {
		t.Fatalf("upsert args = %d, want 8", len(upsertArgs))
	}
	if upsertArgs[0] != "user-7" || upsertArgs[1] != "pro" || upsertArgs[2] != true {
		t.Fatalf("upsert plan args = %v", upsertArgs[:3])
	}
	if upsertArgs[3] != "trialing" || upsertArgs[6] != "cus_1" || upsertArgs[7] != "sub_1" {
		t.Fatalf("upsert provider args = %v", upsertArgs)
	}
	if upsertArgs[4].(*time.Time) == nil || upsertArgs[5].(*time.Time) == nil {
		t.Fatal("expected trial_end and current_period_end to be set")
	}
}

func TestStripeWebhookHandlesDeleted(t *testing.T) {
	var canceledID string
	sql := &fakeSQL{
		execFn: func(query string, args ...any) (pgconn.CommandTag, error) {
			if query == sqlinline.QMarkSubscriptionCanceledByProviderID {
				canceledID = args[0].(string)
			}
			return pgconn.CommandTag{}, nil
		},
	}
	app := webhookApp(sql)

	payload := `{"id":"evt_2","type":"customer.subscription.deleted","data":{"object":{"id":"sub_9","status":"canceled"}}}`
	rec := httptest.NewRecorder()
	app.StripeWebhook(rec, signedWebhookRequest(t, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if canceledID != "sub_9" {
		t.Fatalf("canceled id = %q, want sub_9", canceledID)
	}
}

func TestStripeWebhookVerifiesOtherModeSecret(t *testing.T) {
	var upsertArgs []any
	sql := &fakeSQL{
		execFn: func(query string, args ...any) (pgconn.CommandTag, error) {
			if query == sqlinline.QUpsertSubscriptionFromEvent {
				upsertArgs = args
			}
			return pgconn.CommandTag{}, nil
		},
	}
	app := webhookApp(sql)

	// Persisted mode defaults to test; a live-signed event with a live price
	// must still verify and resolve its plan from the live price table.
	payload := `{
		"id": "evt_5",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_5",
			"status": "active",
			"customer": "cus_5",
			"current_period_end": 1767225600,
			"items": {"data": [{"id": "si_5", "price": {"id": "price_live_pro_m"}}]},
			"metadata": {"user_id": "user-9"}
		}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", billing.SignPayload(liveWebhookSecret, []byte(payload), time.Now()))
	rec := httptest.NewRecorder()
	app.StripeWebhook(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(upsertArgs) != 8 {
		t.Fatalf("upsert args = %d, want 8", len(upsertArgs))
	}
	if upsertArgs[0] != "user-9" || upsertArgs[1] != "pro" || upsertArgs[2] != false {
		t.Fatalf("upsert plan args = %v", upsertArgs[:3])
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	sql := &fakeSQL{
		execFn: func(query string, args ...any) (pgconn.CommandTag, error) {
			t.Fatal("no statement should run for an unverified event")
			return pgconn.CommandTag{}, nil
		},
	}
	app := webhookApp(sql)

	payload := `{"id":"evt_3","type":"customer.subscription.updated","data":{"object":{"id":"sub_1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", billing.SignPayload("wrong-secret", []byte(payload), time.Now()))
	rec := httptest.NewRecorder()
	app.StripeWebhook(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStripeWebhookIgnoresUnknownEvents(t *testing.T) {
	var persisted int
	sql := &fakeSQL{
		execFn: func(query string, args ...any) (pgconn.CommandTag, error) {
			if query == sqlinline.QInsertBillingEvent {
				persisted++
			}
			return pgconn.CommandTag{}, nil
		},
	}
	app := webhookApp(sql)

	payload := `{"id":"evt_4","type":"invoice.paid","data":{"object":{}}}`
	rec := httptest.NewRecorder()
	app.StripeWebhook(rec, signedWebhookRequest(t, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if persisted != 1 {
		t.Fatalf("persisted = %d, want 1 (event stored even when ignored)", persisted)
	}
}
