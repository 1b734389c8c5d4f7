package narrative

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodte-api/pkg/llm"
	"zerodte-api/pkg/prompt"
	"zerodte-api/pkg/snapshot"
)

type stubClient struct {
	resp *llm.ChatResponse
	err  error
	got  *llm.ChatRequest
}

func (s *stubClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.got = req
	return s.resp, s.err
}

func (s *stubClient) GetConfig() *llm.Config { return &llm.Config{} }
func (s *stubClient) Close() error          { return nil }

func reply(text string) *llm.ChatResponse {
	return &llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: text}}}}
}

func sampleSnapshot() *snapshot.MarketSnapshot {
	return &snapshot.MarketSnapshot{
		Symbol:          "SPX",
		SpotPrice:       5012.5,
		CallVolume:      1200,
		PutVolume:       900,
		TopOIStrikes:    []string{"5000 (put)", "5050 (call)"},
		TotalGEX:        2500000,
		TotalDEX:        -1500000,
		VIXCurrent:      "14.20",
		VIXTrend:        "Rising (+0.85)",
		RSI5Min:         snapshot.NotAvailable,
		MACD5Min:        snapshot.NotAvailable,
		RecentTrend5Min: snapshot.NotAvailable,
	}
}

// repoTemplate loads the shipped prompt so template and field names stay in sync.
func repoTemplate(t *testing.T) *prompt.Template {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	path := filepath.Join(filepath.Dir(file), "..", "..", "etc", "prompts", "narrative.tmpl")
	tmpl, err := prompt.NewTemplate(path, nil)
	require.NoError(t, err)
	return tmpl
}

func TestGenerateUsesRenderedPrompt(t *testing.T) {
	client := &stubClient{resp: reply("  Neutral. Iron Condor 4980/5040.  ")}
	gen := NewLLMGenerator(client, repoTemplate(t), WithModel("narrative"))

	text, err := gen.Generate(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "Neutral. Iron Condor 4980/5040.", text)

	require.NotNil(t, client.got)
	assert.Equal(t, "narrative", client.got.Model)
	require.Len(t, client.got.Messages, 1)
	body := client.got.Messages[0].Content
	assert.Contains(t, body, "Analyze the following market data for SPX")
	assert.Contains(t, body, "Current Price: 5012.5")
	assert.Contains(t, body, "Total GEX: $2,500,000")
	assert.Contains(t, body, "Total DEX: -$1,500,000")
	assert.Contains(t, body, "Top Open Interest Strikes: 5000 (put), 5050 (call)")
	assert.Contains(t, body, "RSI (14): N/A")
}

func TestGenerateRateLimitedBecomesText(t *testing.T) {
	client := &stubClient{err: &llm.APIError{StatusCode: http.StatusTooManyRequests}}
	gen := NewLLMGenerator(client, repoTemplate(t))

	text, err := gen.Generate(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, RateLimitedText, text)
}

func TestGenerateOtherErrorsBecomeText(t *testing.T) {
	client := &stubClient{err: errors.New("connection reset")}
	gen := NewLLMGenerator(client, repoTemplate(t))

	text, err := gen.Generate(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "Error generating analysis: connection reset", text)
}

func TestGenerateEmptyReply(t *testing.T) {
	gen := NewLLMGenerator(&stubClient{resp: reply("   ")}, repoTemplate(t))
	text, err := gen.Generate(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "Error generating analysis: empty response from model", text)
}

func TestGenerateWithoutClient(t *testing.T) {
	gen := NewLLMGenerator(nil, repoTemplate(t))
	text, err := gen.Generate(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "Error generating analysis: narrative generator not configured", text)
}

func TestGenerateRenderFailureIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{ .Data.no_such_field }}"), 0o600))
	tmpl, err := prompt.NewTemplate(path, nil)
	require.NoError(t, err)

	client := &stubClient{resp: reply("unused")}
	_, err = NewLLMGenerator(client, tmpl).Generate(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Nil(t, client.got, "model must not be called when the prompt fails")
}

func TestDescribe(t *testing.T) {
	assert.Empty(t, Describe(nil))
	assert.Equal(t, RateLimitedText, Describe(errors.New("googleapi: Error 429: Resource exhausted")))
	assert.Equal(t, "Error generating analysis: boom", Describe(errors.New("boom")))
}
