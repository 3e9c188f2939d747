package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/middleware"
	"github.com/promptpilot/server/internal/providers/prompt"
	"github.com/promptpilot/server/internal/sqlinline"
)

type promptEnhanceRequest struct {
	Draft string `json:"draft"`
	Tone  string `json:"tone"`
}

type promptEnhanceResponse struct {
	Prompt   string            `json:"prompt"`
	Notes    []string          `json:"notes,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata"`
}

// PromptEnhance rewrites a prompt draft for subscribers.
func (a *App) PromptEnhance(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	sub, err := a.activeSubscription(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("subscription lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "subscription check failed")
		return
	}
	if sub == nil || !sub.IsLive() {
		a.error(w, http.StatusPaymentRequired, "subscription_required", "an active subscription is required")
		return
	}

	var req promptEnhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Draft) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "draft required")
		return
	}

	plan, _ := domain.PlanByID(sub.PlanID)
	locale := middleware.LocaleFromContext(r.Context())
	res, err := a.Enhancer.Enhance(r.Context(), prompt.EnhanceRequest{
		Draft:         req.Draft,
		Tone:          req.Tone,
		Locale:        locale,
		PremiumModels: plan.HasFeature("premium_models"),
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("enhancer failed")
		a.error(w, http.StatusInternalServerError, "internal", "enhancer failed")
		return
	}

	props, _ := json.Marshal(map[string]string{"locale": locale, "provider": res.Provider})
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertUsageEvent, userID, "PROMPT_ENHANCE", true, props); err != nil {
		a.Logger.Warn().Err(err).Msg("usage event write failed")
	}

	a.json(w, http.StatusOK, promptEnhanceResponse{
		Prompt:   res.Prompt,
		Notes:    res.Notes,
		Tags:     res.Tags,
		Metadata: res.Metadata,
	})
}
