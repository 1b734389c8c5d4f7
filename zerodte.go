package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/proc"
	"github.com/zeromicro/go-zero/rest"

	"zerodte-api/internal/cli"
	"zerodte-api/internal/config"
	"zerodte-api/internal/handler"
	"zerodte-api/internal/svc"
)

var configFile = flag.String("f", "etc/zerodte.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)

	server := rest.MustNewServer(cfg.RestConf, rest.WithCors())
	defer server.Stop()

	svcCtx := svc.MustNewServiceContext(*cfg)
	handler.RegisterHandlers(server, svcCtx)
	cli.LogConfigSummary(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svcCtx.Start(ctx)
	defer svcCtx.Stop()
	proc.AddShutdownListener(func() {
		cancel()
		svcCtx.Stop()
	})

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
