// Package provider talks to the chat-completion backend.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Fallback strings shown in the panel when a completion cannot be fetched.
const (
	ChatFallback     = "Error fetching AI response."
	GenerateFallback = "Error fetching AI-generated code."
)

// GeneratePrefix is prepended to code-generation prompts.
const GeneratePrefix = "Write code for: "

// DefaultTimeout bounds a single completion round trip.
const DefaultTimeout = 60 * time.Second

// Completer sends one single-turn completion request.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// ErrorKind classifies a CompletionError for logging. The panel never
// distinguishes between kinds.
type ErrorKind string

const (
	ErrorKindInvalid  ErrorKind = "invalid_request"
	ErrorKindNetwork  ErrorKind = "network"
	ErrorKindTimeout  ErrorKind = "timeout"
	ErrorKindCanceled ErrorKind = "canceled"
	ErrorKindAuth     ErrorKind = "auth"
	ErrorKindStatus   ErrorKind = "status"
	ErrorKindDecode   ErrorKind = "decode"
	ErrorKindEmpty    ErrorKind = "empty_response"
)

// CompletionError is returned for every failed completion.
type CompletionError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("could not fetch AI response (%s, HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("could not fetch AI response (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// classifyError wraps err from the transport into a CompletionError.
func classifyError(err error) *CompletionError {
	if err == nil {
		return nil
	}

	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &CompletionError{Kind: ErrorKindTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &CompletionError{Kind: ErrorKindCanceled, Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &CompletionError{Kind: kindForStatus(apiErr.HTTPStatusCode), StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &CompletionError{Kind: ErrorKindTimeout, Err: err}
		}
		return &CompletionError{Kind: ErrorKindNetwork, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &CompletionError{Kind: kindForStatus(reqErr.HTTPStatusCode), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	return &CompletionError{Kind: ErrorKindDecode, Err: err}
}

func kindForStatus(code int) ErrorKind {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return ErrorKindAuth
	}
	return ErrorKindStatus
}

// Client wraps a Completer with the panel's user-facing behavior: bounded
// round trips, logged failures, and fallback strings instead of errors.
type Client struct {
	completer Completer
	timeout   time.Duration
	log       logrus.FieldLogger
}

// NewClient creates a Client. A zero timeout uses DefaultTimeout; a nil
// logger discards log output.
func NewClient(c Completer, timeout time.Duration, log logrus.FieldLogger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{completer: c, timeout: timeout, log: log}
}

// Complete performs one bounded round trip. Errors are always
// *CompletionError.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.completer.Complete(ctx, model, prompt)
	if err != nil {
		ce := classifyError(err)
		c.log.WithFields(logrus.Fields{
			"model":  model,
			"kind":   ce.Kind,
			"status": ce.StatusCode,
		}).WithError(ce.Err).Warn("completion failed")
		return "", ce
	}

	c.log.WithFields(logrus.Fields{
		"model":    model,
		"duration": time.Since(start).Round(time.Millisecond),
		"chars":    len(text),
	}).Debug("completion finished")
	return text, nil
}

// Chat answers a chat message. It never fails: on error it returns
// ChatFallback.
func (c *Client) Chat(ctx context.Context, model, message string) string {
	text, err := c.Complete(ctx, model, message)
	if err != nil {
		return ChatFallback
	}
	return text
}

// Generate asks for code. It never fails: on error it returns
// GenerateFallback.
func (c *Client) Generate(ctx context.Context, model, instruction string) string {
	text, err := c.Complete(ctx, model, GeneratePrefix+instruction)
	if err != nil {
		return GenerateFallback
	}
	return text
}
