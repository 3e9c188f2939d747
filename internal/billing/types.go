package billing

import "fmt"

// CheckoutRequest carries the inputs for a hosted checkout session.
type CheckoutRequest struct {
	PriceID           string
	CustomerEmail     string
	ClientReferenceID string // internal user id, echoed back by webhooks
	SuccessURL        string
	CancelURL         string
}

// CheckoutSession is the provider's hosted checkout session.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PortalSession is a pre-authenticated billing portal link.
type PortalSession struct {
	URL string `json:"url"`
}

// PaymentMethod is the transient view of the customer's default card.
// It is never persisted locally; it always reflects the provider's state.
type PaymentMethod struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"exp_month"`
	ExpYear  int64  `json:"exp_year"`
}

// ProviderSubscription is the provider-side subscription as returned by the API.
type ProviderSubscription struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CustomerID        string `json:"customer"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	TrialEnd          int64  `json:"trial_end"`
	Items             struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// SubscriptionItem is one priced line on a provider subscription.
type SubscriptionItem struct {
	ID    string `json:"id"`
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
}

// ProviderError is the typed failure returned for any non-2xx provider
// response. Callers branch on fields, not on response shapes.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("stripe: %s (http %d)", e.Message, e.StatusCode)
}
