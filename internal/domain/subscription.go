package domain

import (
	"math"
	"time"
)

// SubscriptionStatus enumerates the projection states mirrored from the
// payment provider.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is the locally cached projection of a provider subscription.
// The provider remains authoritative; rows are written from webhook-confirmed
// data or explicit cancel confirmation only.
type Subscription struct {
	ID                     string
	UserID                 string
	PlanID                 string
	IsAnnual               bool
	Status                 SubscriptionStatus
	TrialEndDate           *time.Time
	CurrentPeriodEnd       *time.Time
	ProviderCustomerID     string
	ProviderSubscriptionID string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsLive reports whether the subscription grants access right now.
func (s Subscription) IsLive() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}

// InTrialAt reports whether now falls inside the trial window.
// Absent trial_end_date means no trial.
func (s Subscription) InTrialAt(now time.Time) bool {
	if s.TrialEndDate == nil {
		return false
	}
	return now.Before(*s.TrialEndDate)
}

// InTrialPeriod reports trial-window membership against the wall clock.
func (s Subscription) InTrialPeriod() bool {
	return s.InTrialAt(time.Now().UTC())
}

// TrialDaysRemainingAt returns the whole-day ceiling of the remaining trial
// window at a given time, clamped to 0 once the window has passed.
// Taking now as a parameter keeps the math testable with fixed times.
func (s Subscription) TrialDaysRemainingAt(now time.Time) int {
	if s.TrialEndDate == nil {
		return 0
	}
	remaining := s.TrialEndDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// TrialDaysRemaining returns the remaining trial days against the wall clock.
func (s Subscription) TrialDaysRemaining() int {
	return s.TrialDaysRemainingAt(time.Now().UTC())
}
