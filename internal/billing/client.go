package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CredentialsSource yields the credential set for the current billing mode.
type CredentialsSource interface {
	Current(ctx context.Context) (Credentials, error)
}

// ClientOptions configures the Stripe REST client.
type ClientOptions struct {
	Credentials CredentialsSource
	BaseURL     string
	HTTPClient  *http.Client
}

// Client is a typed client for the subset of the Stripe API this service
// proxies: checkout sessions, billing portal sessions, payment methods and
// subscription updates.
type Client struct {
	creds   CredentialsSource
	baseURL string
	client  *http.Client
}

const defaultTimeout = 15 * time.Second

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Credentials == nil {
		return nil, errors.New("billing: credentials source is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stripe.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{creds: opts.Credentials, baseURL: baseURL, client: client}, nil
}

// CreateCheckoutSession creates a hosted checkout session for a subscription.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, errors.New("billing: price id is required")
	}
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", req.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	if req.ClientReferenceID != "" {
		form.Set("client_reference_id", req.ClientReferenceID)
		form.Set("subscription_data[metadata][user_id]", req.ClientReferenceID)
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreatePortalSession returns a pre-authenticated billing portal link.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error) {
	if customerID == "" {
		return nil, errors.New("billing: customer id is required")
	}
	form := url.Values{}
	form.Set("customer", customerID)
	if returnURL != "" {
		form.Set("return_url", returnURL)
	}

	var session PortalSession
	if err := c.do(ctx, http.MethodPost, "/billing_portal/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSubscription fetches the provider-side subscription.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	var sub ProviderSubscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubscriptionPrice swaps the subscription's single item to the given
// price. The provider confirms the change via webhook; callers must not
// mutate local state on success.
func (c *Client) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) error {
	sub, err := c.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if len(sub.Items.Data) == 0 {
		return &ProviderError{StatusCode: http.StatusUnprocessableEntity, Message: "subscription has no items"}
	}

	form := url.Values{}
	form.Set("items[0][id]", sub.Items.Data[0].ID)
	form.Set("items[0][price]", priceID)
	form.Set("proration_behavior", "create_prorations")
	return c.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID, form, &ProviderSubscription{})
}

// CancelAtPeriodEnd flags the subscription to end at the current period.
func (c *Client) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	form := url.Values{}
	form.Set("cancel_at_period_end", "true")
	return c.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID, form, &ProviderSubscription{})
}

// AttachPaymentMethod attaches the payment method to the customer and makes
// it the default for invoices.
func (c *Client) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	form := url.Values{}
	form.Set("customer", customerID)
	if err := c.do(ctx, http.MethodPost, "/payment_methods/"+paymentMethodID+"/attach", form, &struct{}{}); err != nil {
		return err
	}

	form = url.Values{}
	form.Set("invoice_settings[default_payment_method]", paymentMethodID)
	return c.do(ctx, http.MethodPost, "/customers/"+customerID, form, &struct{}{})
}

// DefaultPaymentMethod returns the customer's default card view, or nil when
// no default method is set.
func (c *Client) DefaultPaymentMethod(ctx context.Context, customerID string) (*PaymentMethod, error) {
	var customer struct {
		InvoiceSettings struct {
			DefaultPaymentMethod string `json:"default_payment_method"`
		} `json:"invoice_settings"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers/"+customerID, nil, &customer); err != nil {
		return nil, err
	}
	if customer.InvoiceSettings.DefaultPaymentMethod == "" {
		return nil, nil
	}

	var method struct {
		Card PaymentMethod `json:"card"`
	}
	if err := c.do(ctx, http.MethodGet, "/payment_methods/"+customer.InvoiceSettings.DefaultPaymentMethod, nil, &method); err != nil {
		return nil, err
	}
	return &method.Card, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	creds, err := c.creds.Current(ctx)
	if err != nil {
		return fmt.Errorf("billing: resolve credentials: %w", err)
	}

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("billing: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    coalesce(envelope.Error.Message, resp.Status),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("billing: decode %s response: %w", path, err)
	}
	return nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
