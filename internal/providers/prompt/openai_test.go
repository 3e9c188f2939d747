package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestOpenAIEnhancerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer dummy" {
			t.Fatalf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"prompt\":\"Task: summarize the report.\",\"notes\":[\"added structure\"],\"tags\":[\"structure\",\"Structure\"],\"metadata\":{}}"}}]}`))
	}))
	defer srv.Close()

	enhancer, err := NewOpenAIEnhancer(OpenAIOptions{APIKey: "dummy", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIEnhancer returned error: %v", err)
	}

	res, err := enhancer.Enhance(context.Background(), EnhanceRequest{Draft: "summarize report", Locale: "en"})
	if err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if res.Provider != openAIProviderName {
		t.Fatalf("Provider = %q, want %q", res.Provider, openAIProviderName)
	}
	if res.Prompt != "Task: summarize the report." {
		t.Fatalf("Prompt = %q", res.Prompt)
	}
	if len(res.Tags) != 1 {
		t.Fatalf("Tags = %v, want deduplicated single tag", res.Tags)
	}
	if res.Metadata["locale"] != "en" {
		t.Fatalf("locale = %q, want en", res.Metadata["locale"])
	}
}

func TestOpenAIEnhancerModelSelection(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		models = append(models, body.Model)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"prompt\":\"Task: done.\",\"metadata\":{}}"}}]}`))
	}))
	defer srv.Close()

	enhancer, err := NewOpenAIEnhancer(OpenAIOptions{
		APIKey:       "dummy",
		Model:        "standard-model",
		PremiumModel: "premium-model",
		BaseURL:      srv.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIEnhancer returned error: %v", err)
	}

	if _, err := enhancer.Enhance(context.Background(), EnhanceRequest{Draft: "draft"}); err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if _, err := enhancer.Enhance(context.Background(), EnhanceRequest{Draft: "draft", PremiumModels: true}); err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if len(models) != 2 || models[0] != "standard-model" || models[1] != "premium-model" {
		t.Fatalf("models = %v", models)
	}
}

func TestOpenAIEnhancerFallbackMetadata(t *testing.T) {
	var capturedReason string
	enhancer, err := NewOpenAIEnhancer(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
		Fallback: NewStaticEnhancer(),
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})
	if err != nil {
		t.Fatalf("NewOpenAIEnhancer returned error: %v", err)
	}

	res, err := enhancer.Enhance(context.Background(), EnhanceRequest{Draft: "write a haiku", Locale: "id"})
	if err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if res.Provider != staticProviderName {
		t.Fatalf("Provider = %q, want %q", res.Provider, staticProviderName)
	}
	if res.Metadata["fallback_reason"] != "http_request" {
		t.Fatalf("fallback_reason = %q, want %q", res.Metadata["fallback_reason"], "http_request")
	}
	if capturedReason != "http_request" {
		t.Fatalf("captured reason = %q, want %q", capturedReason, "http_request")
	}
}

func TestOpenAIEnhancerFallbackOnBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"not json at all"}}]}`))
	}))
	defer srv.Close()

	enhancer, err := NewOpenAIEnhancer(OpenAIOptions{APIKey: "dummy", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIEnhancer returned error: %v", err)
	}

	res, err := enhancer.Enhance(context.Background(), EnhanceRequest{Draft: "plan a launch"})
	if err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if res.Provider != staticProviderName {
		t.Fatalf("Provider = %q, want %q", res.Provider, staticProviderName)
	}
}

func TestNewOpenAIEnhancerRequiresKey(t *testing.T) {
	if _, err := NewOpenAIEnhancer(OpenAIOptions{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestStaticEnhancer(t *testing.T) {
	res, err := NewStaticEnhancer().Enhance(context.Background(), EnhanceRequest{Draft: "explain DNS", Tone: "friendly"})
	if err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if !strings.Contains(res.Prompt, "Task: explain DNS") {
		t.Fatalf("Prompt missing task statement: %q", res.Prompt)
	}
	if !strings.Contains(res.Prompt, "friendly tone") {
		t.Fatalf("Prompt missing tone constraint: %q", res.Prompt)
	}
	if res.Provider != staticProviderName {
		t.Fatalf("Provider = %q", res.Provider)
	}
}
