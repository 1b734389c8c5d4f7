package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/internal/cli"
	"zerodte-api/internal/config"
	"zerodte-api/internal/svc"
	"zerodte-api/pkg/analysis"
)

const runTimeout = 3 * time.Minute

var (
	configFile = flag.String("f", "etc/zerodte.yaml", "the config file")
	share      = flag.Bool("share", false, "publish the result to the daily Google Doc")
	asJSON     = flag.Bool("json", false, "print the result as JSON")
)

// analyze runs a single analysis pass outside the API server and prints it.
func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(*configFile)
	if err != nil {
		logx.Errorf("load config: %v", err)
		return 1
	}
	if !cfg.Market.Configured() {
		cfg.Market.Value = config.MustLoadMarket()
		cfg.Market.File = "etc/market.yaml (default)"
	}
	cli.LogConfigSummary(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	svcCtx, err := svc.NewServiceContext(ctx, *cfg)
	if err != nil {
		logx.Errorf("build service context: %v", err)
		return 1
	}
	defer svcCtx.Stop()

	return analyzeOnce(ctx, svcCtx, os.Stdout, *asJSON, *share)
}

// analyzeOnce triggers one run and prints it to w. It returns the process
// exit code.
func analyzeOnce(ctx context.Context, svcCtx *svc.ServiceContext, w io.Writer, jsonOut, publish bool) int {
	outcome := svcCtx.Scheduler.Trigger(ctx)
	if outcome != analysis.OutcomeRan {
		logx.Errorf("analysis did not complete: outcome=%s", outcome)
		return 1
	}
	result := svcCtx.Store.Latest()

	if err := printResult(w, result, jsonOut); err != nil {
		logx.Errorf("print result: %v", err)
		return 1
	}

	if svcCtx.Reports != nil {
		logx.Infof("report appended to %s", svcCtx.Reports.PathFor(*result.Timestamp))
	}
	if publish {
		url, err := svcCtx.Publisher.Publish(ctx, result)
		if err != nil {
			logx.Errorf("share result: %v", err)
		} else {
			logx.Infof("shared to %s", url)
		}
	}
	return 0
}

func printResult(w io.Writer, r analysis.Result, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	if _, err := fmt.Fprintf(w, "%s\n\n--- Data Summary ---\n", r.Text); err != nil {
		return err
	}
	for _, f := range r.Data.Fields() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", f.Key, f.Value); err != nil {
			return err
		}
	}
	return nil
}
