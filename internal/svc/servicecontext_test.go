package svc_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodte-api/internal/config"
	"zerodte-api/internal/svc"
	"zerodte-api/pkg/analysis"
	"zerodte-api/pkg/narrative"
	"zerodte-api/pkg/snapshot"
)

const mainYAML = `
Name: zerodte-api
Host: 127.0.0.1
Port: 8889
Symbol: SPX
ReportsDir: %s
Scheduler:
  Disabled: true
Market:
  File: market.yaml
LLM:
  File: llm.yaml
`

func loadTestConfig(t *testing.T, llmKey string) *config.Config {
	t.Helper()
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("LLM_API_KEY", llmKey)
	t.Setenv("GOOGLE_API_KEY", "")
	dir := t.TempDir()

	write := func(name, body string) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	write("market.yaml", `
default: tradier
providers:
  tradier:
    type: tradier
    base_url: http://127.0.0.1:1
    api_key: test
`)
	write("llm.yaml", `
default_model: gemini-2.0-flash
timeout: 5s
`)
	write("prompts/narrative.tmpl", "Analyze {{ .Symbol }} at {{ .Data.spot_price }}")
	write("zerodte.yaml", fmt.Sprintf(mainYAML, filepath.Join(dir, "reports")))

	cfg, err := config.Load(filepath.Join(dir, "zerodte.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestNewServiceContext_WithoutOptionalBackends(t *testing.T) {
	cfg := loadTestConfig(t, "")

	ctx, err := svc.NewServiceContext(context.Background(), *cfg)
	require.NoError(t, err)

	assert.NotNil(t, ctx.Gateway)
	assert.Equal(t, "SPX", ctx.Builder.Symbol())
	assert.Nil(t, ctx.LLMClient)
	assert.Nil(t, ctx.Publisher)
	assert.Nil(t, ctx.Archive)
	assert.Nil(t, ctx.DBConn)
	assert.NotEmpty(t, ctx.PromptDigest)
	assert.Equal(t, filepath.Join(cfg.BaseDir(), "reports"), ctx.Reports.Dir())

	text, err := ctx.Generator.Generate(context.Background(), &snapshot.MarketSnapshot{Symbol: "SPX"})
	require.NoError(t, err)
	assert.Equal(t, narrative.Describe(narrative.ErrNotConfigured), text)

	assert.Equal(t, analysis.PlaceholderText, ctx.Store.Latest().Text)
	assert.Same(t, ctx.Store, ctx.Scheduler.Store())

	// Disabled scheduler: Start only primes, Stop is safe.
	ctx.Start(context.Background())
	assert.False(t, ctx.Scheduler.Status().Running)
	ctx.Stop()
}

func TestNewServiceContext_WithLLM(t *testing.T) {
	cfg := loadTestConfig(t, "llm-key")

	ctx, err := svc.NewServiceContext(context.Background(), *cfg)
	require.NoError(t, err)
	require.NotNil(t, ctx.LLMClient)
	assert.Equal(t, "llm-key", ctx.LLMClient.GetConfig().APIKey)
	ctx.Stop()
}

func TestNewServiceContext_RequiresMarket(t *testing.T) {
	cfg := loadTestConfig(t, "")
	cfg.Market.Value = nil

	_, err := svc.NewServiceContext(context.Background(), *cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market config is required")
}
