package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"zerodte-api/internal/logic"
	"zerodte-api/internal/svc"
)

func PauseHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewPauseLogic(r.Context(), svcCtx)
		resp, err := l.Pause()
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}

func ResumeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewPauseLogic(r.Context(), svcCtx)
		resp, err := l.Resume()
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
