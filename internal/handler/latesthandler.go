package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"zerodte-api/internal/logic"
	"zerodte-api/internal/svc"
)

func LatestHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewLatestLogic(r.Context(), svcCtx)
		resp, err := l.Latest()
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
