package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"zerodte-api/internal/logic"
	"zerodte-api/internal/svc"
)

func AnalyzeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewAnalyzeLogic(r.Context(), svcCtx)
		resp, err := l.Analyze()
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
