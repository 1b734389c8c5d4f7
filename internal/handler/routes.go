package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"zerodte-api/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/status",
				Handler: StatusHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/latest",
				Handler: LatestHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/runs/:runId",
				Handler: RunHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/analyze",
				Handler: AnalyzeHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/trigger-analysis",
				Handler: AnalyzeHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/pause",
				Handler: PauseHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/resume",
				Handler: ResumeHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/share",
				Handler: ShareHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/save_local",
				Handler: SaveLocalHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api"),
	)
}
