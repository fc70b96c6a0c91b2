package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the OpenAI API root used when none is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// OpenAIOptions configures an OpenAIProvider.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIProvider sends chat completions to any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a provider. The API key comes from
// configuration and is sent as a bearer token on every request.
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends [{role: user, content: prompt}] to model and returns the
// first choice's message content unmodified.
func (p *OpenAIProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		return "", &CompletionError{Kind: ErrorKindInvalid, Err: errors.New("model must be specified")}
	}
	if prompt == "" {
		return "", &CompletionError{Kind: ErrorKindInvalid, Err: errors.New("prompt must not be empty")}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", &CompletionError{Kind: ErrorKindEmpty, Err: errors.New("response contained no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}
