// Package prompt turns a user's rough prompt draft into a structured,
// model-ready prompt. The OpenAI enhancer is the primary provider; the static
// enhancer is the deterministic fallback.
package prompt

import (
	"context"
	"fmt"
	"strings"
)

type EnhanceRequest struct {
	Draft  string
	Tone   string
	Locale string
	// PremiumModels routes the request to the premium model tier. Set from
	// the caller's plan features.
	PremiumModels bool
}

type EnhanceResponse struct {
	Prompt   string            `json:"prompt"`
	Notes    []string          `json:"notes,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata"`
	Provider string            `json:"-"`
}

type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error)
}

// StaticEnhancer rewrites the draft with a fixed structure. It never fails,
// which makes it the fallback of last resort.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (s *StaticEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	draft := strings.TrimSpace(req.Draft)
	if draft == "" {
		draft = "Describe the task you want the model to perform."
	}
	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = "clear and direct"
	}

	var sb strings.Builder
	sb.WriteString("Task: ")
	sb.WriteString(draft)
	sb.WriteString("\n\nConstraints:\n")
	fmt.Fprintf(&sb, "- Use a %s tone.\n", tone)
	sb.WriteString("- State assumptions explicitly.\n")
	sb.WriteString("- Give the answer first, then the reasoning.\n")
	sb.WriteString("\nOutput format: respond in well-structured prose unless the task calls for a list or code.")

	return &EnhanceResponse{
		Prompt:   sb.String(),
		Notes:    []string{"Added an explicit task statement, constraints and an output format section."},
		Tags:     []string{"structure", "constraints", "output-format"},
		Metadata: map[string]string{"locale": coalesce(req.Locale, "en")},
		Provider: staticProviderName,
	}, nil
}

var _ Enhancer = (*StaticEnhancer)(nil)
