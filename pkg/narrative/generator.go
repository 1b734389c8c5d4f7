package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/pkg/llm"
	"zerodte-api/pkg/prompt"
	"zerodte-api/pkg/snapshot"
)

const (
	// RateLimitedText replaces the narrative when the provider rejects the
	// request for rate limiting.
	RateLimitedText = "Analysis unavailable: Rate limit exceeded. Please try again in a minute."

	errorPrefix = "Error generating analysis: "
)

var (
	// ErrNotConfigured marks a generator built without a client.
	ErrNotConfigured = errors.New("narrative generator not configured")

	errEmptyResponse = errors.New("empty response from model")
)

// Generator turns a market snapshot into commentary text. Provider failures
// are rendered into the returned text; only local failures such as prompt
// rendering are returned as errors.
type Generator interface {
	Generate(ctx context.Context, snap *snapshot.MarketSnapshot) (string, error)
}

// Describe renders a generator failure as user-facing text.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if llm.IsRateLimited(err) {
		return RateLimitedText
	}
	return errorPrefix + err.Error()
}

// PromptData is the value handed to the narrative template.
type PromptData struct {
	Symbol string
	Fields []snapshot.Field
	Data   map[string]string
}

// NewPromptData flattens snap for template rendering.
func NewPromptData(snap *snapshot.MarketSnapshot) PromptData {
	return PromptData{
		Symbol: snap.Symbol,
		Fields: snap.Fields(),
		Data:   snap.FieldMap(),
	}
}

// LLMGenerator renders the narrative prompt and sends it to a chat model.
type LLMGenerator struct {
	client  llm.LLMClient
	tmpl    *prompt.Template
	model   string
	timeout time.Duration
}

// Option customises an LLMGenerator.
type Option func(*LLMGenerator)

// WithModel selects a model alias other than the client default.
func WithModel(model string) Option {
	return func(g *LLMGenerator) {
		g.model = strings.TrimSpace(model)
	}
}

// WithTimeout bounds a single generation call.
func WithTimeout(d time.Duration) Option {
	return func(g *LLMGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// NewLLMGenerator constructs a generator. A nil client yields a generator
// that always reports ErrNotConfigured as text.
func NewLLMGenerator(client llm.LLMClient, tmpl *prompt.Template, opts ...Option) *LLMGenerator {
	g := &LLMGenerator{client: client, tmpl: tmpl}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Render produces the prompt text for snap.
func (g *LLMGenerator) Render(snap *snapshot.MarketSnapshot) (string, error) {
	if snap == nil {
		return "", errors.New("narrative: snapshot is nil")
	}
	if g.tmpl == nil {
		return "", errors.New("narrative: prompt template not configured")
	}
	text, err := g.tmpl.Render(NewPromptData(snap))
	if err != nil {
		return "", fmt.Errorf("narrative: render prompt: %w", err)
	}
	return text, nil
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, snap *snapshot.MarketSnapshot) (string, error) {
	if g == nil || g.client == nil {
		return Describe(ErrNotConfigured), nil
	}
	promptText, err := g.Render(snap)
	if err != nil {
		return "", err
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.Chat(callCtx, &llm.ChatRequest{
		Model:    g.model,
		Messages: []llm.Message{{Role: "user", Content: promptText}},
	})
	if err != nil {
		logx.WithContext(ctx).Errorf("narrative: generation failed for %s: %v", snap.Symbol, err)
		return Describe(err), nil
	}
	text := resp.Text()
	if text == "" {
		return Describe(errEmptyResponse), nil
	}
	return text, nil
}

func (g *LLMGenerator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}
