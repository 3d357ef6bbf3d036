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
	"time"
)

func TestNewGeneratorValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing model", cfg: Config{Provider: ProviderOllama}},
		{name: "unknown provider", cfg: Config{Provider: "bard", Model: "m"}},
		{name: "gemini without key", cfg: Config{Provider: ProviderGemini, Model: "gemini-2.0-flash"}},
		{name: "default provider without key", cfg: Config{Model: "gemini-2.0-flash"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen, err := NewGenerator(context.Background(), tc.cfg)
			if err == nil || gen != nil {
				t.Fatalf("expected constructor error, got generator %T", gen)
			}
		})
	}
}

func TestProviderHelpers(t *testing.T) {
	if got := NormalizeProvider("  OpenAI "); got != ProviderOpenAI {
		t.Fatalf("normalize = %q, want %q", got, ProviderOpenAI)
	}
	if got := NormalizeProvider(""); got != ProviderGemini {
		t.Fatalf("empty provider = %q, want %q", got, ProviderGemini)
	}
	if !IsKnownProvider("ollama") || IsKnownProvider("bard") {
		t.Fatalf("unexpected provider membership")
	}
	if RequiresAPIKey(ProviderOllama) || !RequiresAPIKey(ProviderGemini) {
		t.Fatalf("unexpected api key requirement")
	}
	if got := DisplayName(""); got != "Google Gemini" {
		t.Fatalf("display name = %q", got)
	}
}

func TestRedact(t *testing.T) {
	got := Redact("call failed for key=abc123&x=abc123", "abc123", " ")
	if strings.Contains(got, "abc123") {
		t.Fatalf("secret not redacted: %q", got)
	}
	if !strings.Contains(got, redactedMarker) {
		t.Fatalf("expected marker in %q", got)
	}
}

func TestGenerationErrorTimeout(t *testing.T) {
	err := newGenerationError(ProviderOllama, context.DeadlineExceeded)
	if !err.Timeout() {
		t.Fatalf("expected timeout")
	}
	if err.Message != "request timed out" {
		t.Fatalf("message = %q", err.Message)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected unwrap to deadline exceeded")
	}
}

func TestOllamaGeneratorSendsPromptAsUserMessage(t *testing.T) {
	requests := make(chan ollamaChatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "This prints hi."},
		})
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL+"/", "llama3")
	text, err := gen.GenerateText(context.Background(), "Explain this python code: print('hi')")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "This prints hi." {
		t.Fatalf("text = %q", text)
	}
	got := <-requests
	if got.Model != "llama3" || got.Stream {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "Explain this python code: print('hi')" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestOllamaGeneratorMapsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "model not found"})
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(srv.URL, "missing").GenerateText(context.Background(), "p")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Provider != ProviderOllama || !strings.Contains(genErr.Message, "model not found") {
		t.Fatalf("unexpected error: %+v", genErr)
	}
}

func TestOllamaGeneratorHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOllamaGenerator(srv.URL, "llama3").GenerateText(ctx, "p")
	var genErr *GenerationError
	if !errors.As(err, &genErr) || !genErr.Timeout() {
		t.Fatalf("expected timeout GenerationError, got %v", err)
	}
}

func TestOpenAIGeneratorReturnsFirstChoice(t *testing.T) {
	prompts := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) > 0 {
			prompts <- body.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",` +
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" Fixed. "}}]}`))
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator(srv.URL+"/v1", "sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	text, err := gen.GenerateText(context.Background(), "Debug this go code: x := 1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Fixed." {
		t.Fatalf("text = %q", text)
	}
	if prompt := <-prompts; prompt != "Debug this go code: x := 1" {
		t.Fatalf("prompt = %q", prompt)
	}
}

func TestOpenAIGeneratorRedactsKeyFromErrors(t *testing.T) {
	const secret = "sk-very-secret-key"
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided: ` + secret + `","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator(srv.URL+"/v1", secret, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	_, err = gen.GenerateText(context.Background(), "p")
	if err == nil {
		t.Fatalf("expected error")
	}
	if strings.Contains(err.Error(), secret) {
		t.Fatalf("error leaks credential: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("backend calls = %d, want 1 (no retries)", n)
	}
}

func TestGeminiGeneratorJoinsCandidateText(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"This prints "},{"text":"hi."}]}}]}`))
	}))
	defer srv.Close()

	gen, err := NewGeminiGenerator(context.Background(), srv.URL, "gm-test", "models/gemini-2.0-flash")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	defer gen.Close()
	text, err := gen.GenerateText(context.Background(), "Explain this python code: print('hi')")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "This prints hi." {
		t.Fatalf("text = %q", text)
	}
	if path := <-paths; path != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("path = %q", path)
	}
}

func TestGeminiGeneratorEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	gen, err := NewGeminiGenerator(context.Background(), srv.URL, "gm-test", "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	defer gen.Close()
	_, err = gen.GenerateText(context.Background(), "p")
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Provider != ProviderGemini {
		t.Fatalf("expected gemini GenerationError, got %v", err)
	}
}

func TestGeminiGeneratorRedactsKeyFromErrors(t *testing.T) {
	const secret = "AIza-very-secret-key"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key ` + secret + ` invalid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	gen, err := NewGeminiGenerator(context.Background(), srv.URL, secret, "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	defer gen.Close()
	_, err = gen.GenerateText(context.Background(), "p")
	if err == nil {
		t.Fatalf("expected error")
	}
	if strings.Contains(err.Error(), secret) {
		t.Fatalf("error leaks credential: %v", err)
	}
	if !strings.Contains(err.Error(), redactedMarker) {
		t.Fatalf("expected redaction marker in %v", err)
	}
}
