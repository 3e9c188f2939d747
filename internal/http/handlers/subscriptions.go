package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/sqlinline"
)

type subscriptionDTO struct {
	ID               string     `json:"id"`
	PlanID           string     `json:"plan_id"`
	IsAnnual         bool       `json:"is_annual"`
	Status           string     `json:"status"`
	InTrial          bool       `json:"in_trial"`
	TrialDaysLeft    int        `json:"trial_days_remaining"`
	TrialEndDate     *time.Time `json:"trial_end_date,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

func newSubscriptionDTO(sub domain.Subscription, now time.Time) *subscriptionDTO {
	return &subscriptionDTO{
		ID:               sub.ID,
		PlanID:           sub.PlanID,
		IsAnnual:         sub.IsAnnual,
		Status:           string(sub.Status),
		InTrial:          sub.InTrialAt(now),
		TrialDaysLeft:    sub.TrialDaysRemainingAt(now),
		TrialEndDate:     sub.TrialEndDate,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
}

// activeSubscription loads the user's live subscription projection. It reads
// up to two rows so a violated at-most-one invariant is reported instead of
// silently resolved.
func (a *App) activeSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	rows, err := a.SQL.Query(ctx, sqlinline.QSelectActiveSubscriptionByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.PlanID, &s.IsAnnual, &s.Status, &s.TrialEndDate,
			&s.CurrentPeriodEnd, &s.ProviderCustomerID, &s.ProviderSubscriptionID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(subs) {
	case 0:
		return nil, nil
	case 1:
		return &subs[0], nil
	default:
		return nil, domain.ErrMultipleSubscriptions
	}
}

type subscriptionResponse struct {
	Subscription *subscriptionDTO `json:"subscription"`
}

// SubscriptionGet returns the caller's subscription state. Absence and store
// failures both render as a null subscription: the client treats an unknown
// state as unsubscribed rather than erroring its settings page.
func (a *App) SubscriptionGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	sub, err := a.activeSubscription(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("subscription lookup failed")
		a.json(w, http.StatusOK, subscriptionResponse{Subscription: nil})
		return
	}
	if sub == nil {
		a.json(w, http.StatusOK, subscriptionResponse{Subscription: nil})
		return
	}
	a.json(w, http.StatusOK, subscriptionResponse{Subscription: newSubscriptionDTO(*sub, time.Now().UTC())})
}

type planDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	MonthlyPriceCents int64    `json:"monthly_price_cents"`
	AnnualPriceCents  int64    `json:"annual_price_cents"`
	Features          []string `json:"features"`
}

// PlansList returns the fixed plan catalog.
func (a *App) PlansList(w http.ResponseWriter, r *http.Request) {
	catalog := domain.Plans()
	out := make([]planDTO, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, planDTO{
			ID:                p.ID,
			Name:              p.Name,
			MonthlyPriceCents: p.MonthlyPriceCents,
			AnnualPriceCents:  p.AnnualPriceCents,
			Features:          p.Features,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"plans": out})
}
