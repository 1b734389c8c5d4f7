package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	analysispersist "zerodte-api/internal/persistence/analysis"
	"zerodte-api/internal/types"
	"zerodte-api/pkg/publisher"
	"zerodte-api/pkg/report"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, analysispersist.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, publisher.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, publisher.ErrNoAnalysis), errors.Is(err, report.ErrNoAnalysis):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": "..."} with a matching status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteJsonCtx(r.Context(), w, errorStatus(err), &types.ErrorResponse{Error: err.Error()})
}
