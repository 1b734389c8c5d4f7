package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/internal/config"
	"zerodte-api/pkg/confkit"
)

// Entry is one key of the startup configuration summary.
type Entry struct {
	Key   string
	Value string
}

// Summary describes the loaded configuration without exposing secrets.
func Summary(cfg *config.Config) []Entry {
	if cfg == nil {
		return nil
	}

	sched := fmt.Sprintf("every %s, cooldown %s, warm-up %s",
		cfg.Scheduler.Interval, cfg.Scheduler.Cooldown, cfg.Scheduler.WarmupDelay)
	if cfg.Scheduler.Disabled {
		sched += ", disabled"
	}

	return []Entry{
		{"env", cfg.Env},
		{"symbol", cfg.Symbol + "/" + cfg.VolatilitySymbol},
		{"scheduler", sched},
		{"reports", cfg.ReportsDir},
		{"prompt", cfg.PromptTemplate},
		{"postgres", onOff(strings.TrimSpace(cfg.Postgres.DSN) != "")},
		{"redis", onOff(strings.TrimSpace(cfg.Redis.Host) != "")},
		{"market", source(cfg.Market)},
		{"llm", source(cfg.LLM)},
		{"publisher", source(cfg.Publisher)},
	}
}

// LogConfigSummary writes the summary as one structured log line.
func LogConfigSummary(cfg *config.Config) {
	entries := Summary(cfg)
	if len(entries) == 0 {
		logx.Info("config: none loaded")
		return
	}
	fields := make([]logx.LogField, 0, len(entries))
	for _, e := range entries {
		fields = append(fields, logx.Field(e.Key, e.Value))
	}
	logx.Infow("config loaded", fields...)
}

func onOff(ok bool) string {
	if ok {
		return "on"
	}
	return "off"
}

func source[T any](s confkit.Section[T]) string {
	if f := strings.TrimSpace(s.File); f != "" {
		return f
	}
	if s.Configured() {
		return "inline"
	}
	return "off"
}
