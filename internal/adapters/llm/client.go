// Package llm is an OpenAI compatible chat completion client behind the loop generator
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"murmur/internal/adapters/rest"
	perr "murmur/internal/platform/errors"
	loops "murmur/internal/services/loops/domain"
	telemetry "murmur/internal/services/telemetry/domain"
)

const baseURLDefault = "https://api.openai.com/v1"

// Options configures the Client
type Options struct {
	BaseURL  string
	APIKey   string
	Provider string
	Model    string

	// Persona is the system prompt every request starts with
	Persona     string
	MaxTokens   int
	Temperature float64
	ThreadParts int
	MaxChars    int

	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
}

// Client implements loops.Generator
type Client struct {
	api  *rest.Client
	opts Options
}

var _ loops.Generator = (*Client)(nil)

// New builds a Client with defaults for zero options
func New(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.Provider == "" {
		o.Provider = "openai"
	}
	if o.Model == "" {
		o.Model = "gpt-4o-mini"
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 400
	}
	if o.ThreadParts < 2 {
		o.ThreadParts = 4
	}
	if o.MaxChars <= 0 {
		o.MaxChars = 280
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Minute
	}
	key := o.APIKey
	return &Client{
		opts: o,
		api: rest.New(rest.Options{
			Name: "llm", BaseURL: strings.TrimRight(o.BaseURL, "/"), Timeout: o.Timeout,
			MaxRetries: o.MaxRetries, RetryBase: o.RetryBase,
			Authorize: func(r *http.Request) {
				if key != "" {
					r.Header.Set("Authorization", "Bearer "+key)
				}
			},
		}),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// GenerateReply implements loops.Generator
func (c *Client) GenerateReply(ctx context.Context, text, author string, mention bool) (loops.Generation, error) {
	var b strings.Builder
	if mention {
		fmt.Fprintf(&b, "@%s mentioned you:\n\n%s\n\nReply to them directly.", author, text)
	} else {
		fmt.Fprintf(&b, "Post by @%s:\n\n%s\n\nWrite a reply that adds something useful.", author, text)
	}
	fmt.Fprintf(&b, " At most %d characters, no hashtags.", c.opts.MaxChars)
	return c.complete(ctx, b.String(), false)
}

// GenerateTweet implements loops.Generator
func (c *Client) GenerateTweet(ctx context.Context, topic string) (loops.Generation, error) {
	prompt := fmt.Sprintf("Write one standalone post about %s. At most %d characters.", topic, c.opts.MaxChars)
	return c.complete(ctx, prompt, false)
}

// GenerateThread implements loops.Generator. Parts come back separated by blank lines
func (c *Client) GenerateThread(ctx context.Context, topic string) (loops.Generation, error) {
	prompt := fmt.Sprintf(
		"Write a thread of %d posts about %s. Each post at most %d characters. Separate posts with one blank line and do not number them.",
		c.opts.ThreadParts, topic, c.opts.MaxChars)
	return c.complete(ctx, prompt, true)
}

func (c *Client) complete(ctx context.Context, prompt string, thread bool) (loops.Generation, error) {
	msgs := make([]message, 0, 2)
	if c.opts.Persona != "" {
		msgs = append(msgs, message{Role: "system", Content: c.opts.Persona})
	}
	msgs = append(msgs, message{Role: "user", Content: prompt})

	var out chatResponse
	err := c.api.Do(ctx, http.MethodPost, "/chat/completions", nil, chatRequest{
		Model:       c.opts.Model,
		Messages:    msgs,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}, &out)
	if err != nil {
		return loops.Generation{}, err
	}
	if len(out.Choices) == 0 {
		return loops.Generation{}, perr.Newf(perr.ErrorCodeGeneration, "llm: no choices returned")
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	var texts []string
	if thread {
		texts = splitParts(content)
	} else if content != "" {
		texts = []string{unquote(content)}
	}
	if len(texts) == 0 {
		return loops.Generation{}, perr.Newf(perr.ErrorCodeGeneration, "llm: empty completion (finish %s)", out.Choices[0].FinishReason)
	}

	model := out.Model
	if model == "" {
		model = c.opts.Model
	}
	return loops.Generation{
		Texts: texts,
		Usage: telemetry.Usage{
			Provider:         c.opts.Provider,
			Model:            model,
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
		},
	}, nil
}

func splitParts(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, "\n\n") {
		if p = unquote(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// unquote drops the wrapping quotes models like to add
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
