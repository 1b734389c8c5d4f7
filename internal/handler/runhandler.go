package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"zerodte-api/internal/logic"
	"zerodte-api/internal/svc"
	"zerodte-api/internal/types"
)

func RunHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RunRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.WriteJsonCtx(r.Context(), w, http.StatusBadRequest, &types.ErrorResponse{Error: err.Error()})
			return
		}

		l := logic.NewRunLogic(r.Context(), svcCtx)
		resp, err := l.Run(&req)
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
