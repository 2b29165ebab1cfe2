package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"curatorhub/internal/model"
	pkgconfig "curatorhub/pkg/config"
	"curatorhub/pkg/trace"
)

func newTestClient(url string) *Client {
	return NewClient(pkgconfig.AIConfig{
		BaseURL:     url,
		APIKey:      "test-key",
		TextModel:   "text-model",
		ImageModel:  "image-model",
		TimeoutSec:  5,
		MaxFailures: 5,
		ResetSec:    30,
	}, zap.NewNop())
}

func writeChat(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
}

func TestGenerateText_Success(t *testing.T) {
	var gotTrace, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path=%s, want /chat/completions", r.URL.Path)
		}
		gotTrace = r.Header.Get(trace.HeaderName)
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "text-model" || len(req.Messages) != 2 {
			t.Errorf("request=%+v, want text-model with two messages", req)
		}
		writeChat(w, "  A quiet room of Dutch still lifes.  ")
	}))
	defer srv.Close()

	ctx := trace.WithContext(context.Background(), "trace-123")
	got, err := newTestClient(srv.URL).GenerateText(ctx, TextRequest{
		Kind:  model.ContentLabel,
		Input: PromptInput{Title: "Still Lifes"},
	})
	if err != nil {
		t.Fatalf("GenerateText() err=%v, want nil", err)
	}
	if got.Fallback {
		t.Fatalf("GenerateText() fallback=true, want false")
	}
	if got.Text != "A quiet room of Dutch still lifes." {
		t.Fatalf("GenerateText() text=%q", got.Text)
	}
	if got.Model != "text-model" || got.Provider != "127.0.0.1" {
		t.Fatalf("GenerateText() model=%q provider=%q", got.Model, got.Provider)
	}
	if gotTrace != "trace-123" {
		t.Fatalf("trace header=%q, want trace-123", gotTrace)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization=%q", gotAuth)
	}
}

func TestGenerateText_RetriesOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeChat(w, "second try")
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).GenerateText(context.Background(), TextRequest{Kind: model.ContentSocial})
	if err != nil {
		t.Fatalf("GenerateText() err=%v", err)
	}
	if got.Fallback || got.Text != "second try" {
		t.Fatalf("GenerateText() = %+v, want provider text after retry", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls=%d, want 2", n)
	}
}

func TestGenerateText_FallbackOnRejection(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	in := PromptInput{Title: "Night Market", Description: "Photographs 1950-1970"}
	got, err := newTestClient(srv.URL).GenerateText(context.Background(), TextRequest{Kind: model.ContentPressRelease, Input: in})
	if err != nil {
		t.Fatalf("GenerateText() err=%v", err)
	}
	if !got.Fallback || got.Provider != FallbackProvider {
		t.Fatalf("GenerateText() = %+v, want fallback", got)
	}
	if got.Text != FallbackText(model.ContentPressRelease, in) {
		t.Fatalf("GenerateText() text=%q, want fallback template", got.Text)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls=%d, want 1 (4xx is not retried)", n)
	}
}

func TestGenerateText_BreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(pkgconfig.AIConfig{
		BaseURL: srv.URL, APIKey: "k", TextModel: "m", TimeoutSec: 5, MaxFailures: 2, ResetSec: 60,
	}, zap.NewNop())

	for i := 0; i < 3; i++ {
		got, _ := c.GenerateText(context.Background(), TextRequest{Kind: model.ContentLabel})
		if !got.Fallback {
			t.Fatalf("call %d: fallback=false, want true", i)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("upstream calls=%d, want 2 before the breaker opened", n)
	}
}

func TestGenerateText_NoAPIKey(t *testing.T) {
	c := NewClient(pkgconfig.AIConfig{BaseURL: "http://127.0.0.1:1", TimeoutSec: 1}, zap.NewNop())

	got, err := c.GenerateText(context.Background(), TextRequest{Kind: model.ContentEducation, Input: PromptInput{Title: "Bronze Age"}})
	if err != nil || !got.Fallback {
		t.Fatalf("GenerateText() = %+v, %v, want fallback", got, err)
	}
}

func TestGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path=%s, want /images/generations", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{{"url": "https://img.example/1.png"}}})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).GenerateImage(context.Background(), ImageRequest{Input: PromptInput{Title: "Harbour"}})
	if err != nil {
		t.Fatalf("GenerateImage() err=%v", err)
	}
	if got.URL != "https://img.example/1.png" || got.Model != "image-model" {
		t.Fatalf("GenerateImage() = %+v", got)
	}
}

func TestGenerateImage_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateImage(context.Background(), ImageRequest{Input: PromptInput{Title: "Harbour"}})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("GenerateImage() err=%v, want ErrProviderUnavailable", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(model.ContentLabel, PromptInput{
		Title:    "Amphora",
		Keywords: []string{"Attic", "black-figure"},
	})
	for _, want := range []string{"wall label", "Amphora", "general visitors", "Attic, black-figure", "80 words"} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("BuildPrompt() user=%q, missing %q", p.User, want)
		}
	}
	if p.System == "" {
		t.Fatalf("BuildPrompt() system prompt is empty")
	}

	custom := BuildPrompt(model.ContentSocial, PromptInput{Title: "Late opening", Audience: "students", MaxWords: 20})
	if !strings.Contains(custom.User, "students") || !strings.Contains(custom.User, "20 words") {
		t.Fatalf("BuildPrompt() user=%q, want overrides applied", custom.User)
	}
}

func TestFallbackText(t *testing.T) {
	if got := FallbackText(model.ContentSocial, PromptInput{}); !strings.Contains(got, "Untitled") {
		t.Fatalf("FallbackText() = %q, want Untitled placeholder", got)
	}
	a := FallbackText(model.ContentEducation, PromptInput{Title: "Looms"})
	b := FallbackText(model.ContentEducation, PromptInput{Title: "Looms"})
	if a != b {
		t.Fatalf("FallbackText() not deterministic")
	}
}
