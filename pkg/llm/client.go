package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/zeromicro/go-zero/core/logx"
)

// LLMClient is the chat surface the narrative generator depends on.
type LLMClient interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	GetConfig() *Config
	Close() error
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg     *Config
	sdk     *openai.Client
	backoff Backoff
	hc      *http.Client
}

// ClientOption customises a Client before the SDK is built.
type ClientOption func(*Client)

// WithBackoff replaces the retry policy derived from Config.MaxRetries.
func WithBackoff(b Backoff) ClientOption {
	return func(c *Client) { c.backoff = b.normalized() }
}

// WithHTTPClient routes SDK traffic through hc.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// WithOpenAIClient uses a prebuilt SDK client.
func WithOpenAIClient(sdk *openai.Client) ClientOption {
	return func(c *Client) { c.sdk = sdk }
}

// NewClient validates cfg and builds a client. The SDK's own retries are
// disabled; Backoff is the only retry layer.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm: nil config")
	}
	own := cfg.Clone()
	if err := own.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     own,
		backoff: Backoff{Retries: own.MaxRetries}.normalized(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sdk == nil {
		reqOpts := []option.RequestOption{
			option.WithAPIKey(own.APIKey),
			option.WithBaseURL(own.BaseURL),
			option.WithMaxRetries(0),
			option.WithRequestTimeout(own.Timeout),
		}
		if c.hc != nil {
			reqOpts = append(reqOpts, option.WithHTTPClient(c.hc))
		}
		sdk := openai.NewClient(reqOpts...)
		c.sdk = &sdk
	}
	return c, nil
}

// Chat sends one non-streaming completion request.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, errors.New("llm: nil request")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("llm: request has no messages, at least one message is required")
	}

	model, defaults := c.cfg.resolve(req.Model)
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toSDKMessages(req.Messages),
	}
	if v := firstSet(req.Temperature, defaults.Temperature); v != nil {
		params.Temperature = openai.Float(*v)
	}
	if v := firstSet(req.TopP, defaults.TopP); v != nil {
		params.TopP = openai.Float(*v)
	}
	if v := firstSet(req.MaxCompletionTokens, defaults.MaxCompletionTokens); v != nil {
		params.MaxCompletionTokens = openai.Int(int64(*v))
	}

	logger := logx.WithContext(ctx)
	started := time.Now()
	logger.Infow("llm chat request",
		logx.Field("model", model),
		logx.Field("messages", describeMessages(req.Messages)))

	var completion *openai.ChatCompletion
	err := c.backoff.run(ctx, func(ctx context.Context) error {
		resp, err := c.sdk.Chat.Completions.New(ctx, params)
		if err != nil {
			return err
		}
		completion = resp
		return nil
	})
	elapsed := time.Since(started).Milliseconds()
	if err != nil {
		err = toAPIError(err)
		logger.Errorw(fmt.Sprintf("llm chat failed: %v", err),
			logx.Field("model", model),
			logx.Field("duration_ms", elapsed))
		return nil, err
	}

	resp := fromCompletion(completion)
	logger.Infow("llm chat done",
		logx.Field("model", model),
		logx.Field("duration_ms", elapsed),
		logx.Field("prompt_tokens", resp.Usage.PromptTokens),
		logx.Field("completion_tokens", resp.Usage.CompletionTokens))
	return resp, nil
}

// GetConfig returns a copy of the client's configuration.
func (c *Client) GetConfig() *Config {
	return c.cfg.Clone()
}

// Close drops idle connections held by an injected HTTP client.
func (c *Client) Close() error {
	if c.hc != nil {
		c.hc.CloseIdleConnections()
	}
	return nil
}

func firstSet[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func toSDKMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		var p openai.ChatCompletionMessageParamUnion
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			p = openai.SystemMessage(m.Content)
			if m.Name != "" {
				p.OfSystem.Name = openai.String(m.Name)
			}
		case "developer":
			p = openai.DeveloperMessage(m.Content)
		case "assistant":
			p = openai.ChatCompletionMessageParamOfAssistant(m.Content)
		default:
			p = openai.UserMessage(m.Content)
			if m.Name != "" {
				p.OfUser.Name = openai.String(m.Name)
			}
		}
		out = append(out, p)
	}
	return out
}

func fromCompletion(cc *openai.ChatCompletion) *ChatResponse {
	if cc == nil {
		return &ChatResponse{}
	}
	resp := &ChatResponse{
		ID:      cc.ID,
		Model:   cc.Model,
		Created: cc.Created,
		Usage: Usage{
			PromptTokens:     int(cc.Usage.PromptTokens),
			CompletionTokens: int(cc.Usage.CompletionTokens),
			TotalTokens:      int(cc.Usage.TotalTokens),
		},
		Choices: make([]Choice, 0, len(cc.Choices)),
	}
	for _, ch := range cc.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index:        int(ch.Index),
			FinishReason: ch.FinishReason,
			Message: Message{
				Role:    string(ch.Message.Role),
				Content: ch.Message.Content,
			},
		})
	}
	return resp
}

// describeMessages renders role and size per message; content stays out of logs.
func describeMessages(msgs []Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString(", ")
		}
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(&sb, "%s:%d", role, len(m.Content))
	}
	return sb.String()
}
