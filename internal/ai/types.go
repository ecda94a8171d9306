package ai

import (
    "context"
    "errors"
    "time"
)

// Request represents a generic completion request.
type Request struct {
    SystemPrompt string
    Prompt       string
    Model        string
    MaxTokens    int
    Timeout      time.Duration
}

type Response struct {
    Text      string
    TokensIn  int
    TokensOut int
}

// Client interface for providers like Gemini, OpenAI, Anthropic.
type Client interface {
    Name() string
    Do(ctx context.Context, req Request) (Response, error)
}

var ErrRateLimited = errors.New("rate_limited")

func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
