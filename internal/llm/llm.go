// Package llm provides the model clients used for document generation,
// gap analysis, and quality review. All providers implement Client; the
// choice of provider and model per profile is a configuration concern.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Request is one completion request.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Client is the minimal completion contract the core requires.
type Client interface {
	// Complete issues one model call and returns the raw text output.
	Complete(ctx context.Context, req Request) (string, error)
	// Model returns the configured model name.
	Model() string
	// Close releases connection resources.
	Close()
}

// RetryableError indicates a transient failure (rate limit, upstream
// overload) that callers may retry within their own budget.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// MalformedOutputError reports model output that could not be parsed
// into the expected shape. It is absorbed or treated as a gate failure
// per call site, never propagated to the service caller.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v (raw: %s)", e.Err, truncate(e.Raw, 200))
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json|markdown)?\\s*(.*?)\\s*```$")

// StripCodeFence removes an incidental Markdown code fence wrapping the
// whole response, which models frequently add around JSON output.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// ParseJSON strips any code fence from text and unmarshals it into out.
// Parse failures come back as *MalformedOutputError.
func ParseJSON(text string, out any) error {
	cleaned := StripCodeFence(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &MalformedOutputError{Raw: cleaned, Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
