package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeBackend records chat-completion requests and answers with a fixed
// handler.
type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

type recordedRequest struct {
	Path   string
	Auth   string
	Model  string
	Body   map[string]any
	Prompt string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	rec := recordedRequest{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body}
	rec.Model, _ = body["model"].(string)
	if msgs, ok := body["messages"].([]any); ok && len(msgs) > 0 {
		if m, ok := msgs[0].(map[string]any); ok {
			rec.Prompt, _ = m["content"].(string)
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	f.handler(w, r)
}

func (f *fakeBackend) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no request reached the backend")
	}
	return f.requests[len(f.requests)-1]
}

func replyWith(content ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		choices := make([]map[string]any, len(content))
		for i, c := range content {
			choices[i] = map[string]any{
				"index":         i,
				"message":       map[string]any{"role": "assistant", "content": c},
				"finish_reason": "stop",
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   "gpt-4",
			"choices": choices,
		})
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*OpenAIProvider, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{handler: handler}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	p, err := NewOpenAIProvider(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	return p, backend
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIOptions{APIKey: "  "}); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	p, backend := newTestProvider(t, replyWith("def fib(n):\n    ...", "second choice"))

	got, err := p.Complete(context.Background(), "gpt-4", "fibonacci function")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "def fib(n):\n    ..." {
		t.Errorf("Complete = %q, want first choice unmodified", got)
	}

	req := backend.last(t)
	if req.Path != "/v1/chat/completions" {
		t.Errorf("path = %q", req.Path)
	}
	if req.Auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", req.Auth)
	}
	if req.Model != "gpt-4" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Prompt != "fibonacci function" {
		t.Errorf("prompt = %q", req.Prompt)
	}
	msgs := req.Body["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected a single-turn message list, got %d", len(msgs))
	}
	if role := msgs[0].(map[string]any)["role"]; role != "user" {
		t.Errorf("role = %v, want user", role)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind ErrorKind
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantKind: ErrorKindStatus,
		},
		{
			name: "auth error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			},
			wantKind: ErrorKindAuth,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"choices": [`))
			},
			wantKind: ErrorKindDecode,
		},
		{
			name:     "no choices",
			handler:  replyWith(),
			wantKind: ErrorKindEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, tt.handler)
			client := NewClient(p, time.Second, nil)

			_, err := client.Complete(context.Background(), "gpt-4", "hi")
			var ce *CompletionError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *CompletionError", err)
			}
			if ce.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", ce.Kind, tt.wantKind)
			}
		})
	}
}

func TestCompleteRejectsEmptyInput(t *testing.T) {
	p, backend := newTestProvider(t, replyWith("unused"))

	for _, tc := range []struct{ model, prompt string }{{"", "hi"}, {"gpt-4", ""}} {
		_, err := p.Complete(context.Background(), tc.model, tc.prompt)
		var ce *CompletionError
		if !errors.As(err, &ce) || ce.Kind != ErrorKindInvalid {
			t.Errorf("Complete(%q, %q) err = %v, want invalid request", tc.model, tc.prompt, err)
		}
	}
	if len(backend.requests) != 0 {
		t.Errorf("invalid input reached the backend %d times", len(backend.requests))
	}
}

func TestCompleteNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewOpenAIProvider(OpenAIOptions{APIKey: "sk-test", BaseURL: url})
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(p, time.Second, nil)

	_, err = client.Complete(context.Background(), "gpt-4", "hi")
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompletionError", err)
	}
	if ce.Kind != ErrorKindNetwork {
		t.Errorf("Kind = %q, want network", ce.Kind)
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	client := NewClient(p, 50*time.Millisecond, nil)

	_, err := client.Complete(context.Background(), "gpt-4", "hi")
	var ce *CompletionError
	if !errors.As(err, &ce) || ce.Kind != ErrorKindTimeout {
		t.Fatalf("err = %v, want timeout CompletionError", err)
	}
}

func TestChatAndGenerate(t *testing.T) {
	p, backend := newTestProvider(t, replyWith("answer"))
	client := NewClient(p, time.Second, nil)

	if got := client.Chat(context.Background(), "gpt-4", "hello"); got != "answer" {
		t.Errorf("Chat = %q", got)
	}
	if prompt := backend.last(t).Prompt; prompt != "hello" {
		t.Errorf("chat prompt = %q, want raw message", prompt)
	}

	if got := client.Generate(context.Background(), "gpt-4", "fibonacci function"); got != "answer" {
		t.Errorf("Generate = %q", got)
	}
	if prompt := backend.last(t).Prompt; prompt != "Write code for: fibonacci function" {
		t.Errorf("generate prompt = %q", prompt)
	}
}

func TestFallbackStrings(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	client := NewClient(p, time.Second, nil)

	if got := client.Chat(context.Background(), "gpt-4", "hello"); got != ChatFallback {
		t.Errorf("Chat = %q, want %q", got, ChatFallback)
	}
	if got := client.Generate(context.Background(), "gpt-4", "fibonacci function"); got != "Error fetching AI-generated code." {
		t.Errorf("Generate = %q", got)
	}
}

// stubCompleter lets tests drive Client without HTTP.
type stubCompleter struct {
	err error
}

func (s stubCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return model + ":" + prompt, nil
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"deadline", context.DeadlineExceeded, ErrorKindTimeout},
		{"canceled", context.Canceled, ErrorKindCanceled},
		{"already classified", &CompletionError{Kind: ErrorKindEmpty}, ErrorKindEmpty},
		{"unknown", errors.New("weird"), ErrorKindDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(stubCompleter{err: tt.err}, time.Second, nil)
			_, err := client.Complete(context.Background(), "m", "p")
			var ce *CompletionError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v", err)
			}
			if ce.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", ce.Kind, tt.want)
			}
		})
	}
}

func TestClientPassesModelThrough(t *testing.T) {
	client := NewClient(stubCompleter{}, 0, nil)
	if got := client.Chat(context.Background(), "gpt-3.5-turbo", "x"); got != "gpt-3.5-turbo:x" {
		t.Errorf("Chat = %q", got)
	}
}
