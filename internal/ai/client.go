package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 2048
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("ai: empty response")

// Request is a single-turn completion request.
type Request struct {
	System    string
	Prompt    string
	Prefill   string // text the assistant turn is forced to start with
	MaxTokens int64
}

// Completer produces one text completion. The returned text includes Prefill.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client implements Completer using the official anthropic-sdk-go.
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewClient creates a Completer backed by the Anthropic Messages API. Extra
// request options (base URL, HTTP client) are passed through to the SDK.
func NewClient(apiKey, model string, maxTokens int64, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client:    sdk.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	messages := []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))}
	if req.Prefill != "" {
		messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(req.Prefill)))
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "ai: create message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	zap.L().Debug("ai: completion",
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return req.Prefill + b.String(), nil
}

// CompleteJSON asks for a single JSON object and decodes it into out. The
// assistant turn is prefilled with "{" so the reply is the object itself.
func CompleteJSON(ctx context.Context, c Completer, system, prompt string, out any) error {
	text, err := c.Complete(ctx, Request{System: system, Prompt: prompt, Prefill: "{"})
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(out); err != nil {
		return eris.Wrapf(err, "ai: decode JSON reply %q", truncate(text, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return cutAtRune(s, n) + "..."
}
