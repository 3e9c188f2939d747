package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/promptpilot/server/internal/infra"
)

// Mode selects which provider credential set is in use.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

// Credentials is one complete provider credential set: secret key, webhook
// secret and the plan/interval price table for that mode.
type Credentials struct {
	Mode          Mode
	SecretKey     string
	WebhookSecret string
	Prices        map[string]string // "<plan>_<interval>" -> provider price id
}

func priceKey(planID string, isAnnual bool) string {
	interval := "monthly"
	if isAnnual {
		interval = "annual"
	}
	return planID + "_" + interval
}

// PriceFor resolves the provider price ID for a plan and billing interval.
func (c Credentials) PriceFor(planID string, isAnnual bool) (string, bool) {
	id, ok := c.Prices[priceKey(planID, isAnnual)]
	return id, ok
}

// PlanForPrice reverse-maps a provider price ID to its plan and interval.
func (c Credentials) PlanForPrice(priceID string) (planID string, isAnnual bool, ok bool) {
	for key, id := range c.Prices {
		if id != priceID {
			continue
		}
		for _, plan := range []string{"pro", "elite"} {
			if key == plan+"_monthly" {
				return plan, false, true
			}
			if key == plan+"_annual" {
				return plan, true, true
			}
		}
	}
	return "", false, false
}

// ModeFlag reads the persisted test-mode toggle. Implemented by prefs.Store.
type ModeFlag interface {
	BillingTestMode(ctx context.Context) (bool, error)
}

// Source resolves the current credential set from the persisted mode flag.
// It holds both sets explicitly and caches the resolution for a bounded TTL;
// there is no process-wide mutable provider config.
type Source struct {
	test Credentials
	live Credentials
	flag ModeFlag
	ttl  time.Duration

	mu        sync.RWMutex
	cached    Credentials
	fetchedAt time.Time
}

const defaultModeTTL = 30 * time.Second

// NewSource builds a Source from the loaded config pair.
func NewSource(cfg *infra.Config, flag ModeFlag) *Source {
	return &Source{
		test: Credentials{
			Mode:          ModeTest,
			SecretKey:     cfg.StripeTestSecretKey,
			WebhookSecret: cfg.StripeTestWebhookSecret,
			Prices:        cfg.StripeTestPrices,
		},
		live: Credentials{
			Mode:          ModeLive,
			SecretKey:     cfg.StripeLiveSecretKey,
			WebhookSecret: cfg.StripeLiveWebhookSecret,
			Prices:        cfg.StripeLivePrices,
		},
		flag: flag,
		ttl:  defaultModeTTL,
	}
}

// Current returns the credential set for the persisted mode, re-reading the
// flag once the TTL has lapsed.
func (s *Source) Current(ctx context.Context) (Credentials, error) {
	s.mu.RLock()
	fresh := time.Since(s.fetchedAt) < s.ttl && s.cached.SecretKey != ""
	cached := s.cached
	s.mu.RUnlock()
	if fresh {
		return cached, nil
	}
	return s.Refresh(ctx)
}

// Refresh re-reads the mode flag and swaps the cached credential set.
func (s *Source) Refresh(ctx context.Context) (Credentials, error) {
	testMode := true
	if s.flag != nil {
		v, err := s.flag.BillingTestMode(ctx)
		if err != nil {
			return Credentials{}, err
		}
		testMode = v
	}

	creds := s.test
	if !testMode {
		creds = s.live
	}
	if creds.SecretKey == "" {
		return Credentials{}, errors.New("billing: no secret key configured for mode " + string(creds.Mode))
	}

	s.mu.Lock()
	s.cached = creds
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return creds, nil
}

// WebhookCandidates returns the credential sets a webhook signature may be
// checked against, current mode first. The provider signs each event with the
// secret of the mode it originated in, so an event from the other mode can
// arrive while the persisted flag points elsewhere.
func (s *Source) WebhookCandidates(ctx context.Context) ([]Credentials, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	other := s.live
	if current.Mode == ModeLive {
		other = s.test
	}
	candidates := []Credentials{current}
	if other.WebhookSecret != "" {
		candidates = append(candidates, other)
	}
	return candidates, nil
}

// static source for tests and CLIs that pin a mode.
type staticSource struct {
	creds Credentials
}

func (s staticSource) Current(context.Context) (Credentials, error) { return s.creds, nil }

// StaticSource returns a CredentialsSource that always yields creds.
func StaticSource(creds Credentials) CredentialsSource {
	return staticSource{creds: creds}
}
