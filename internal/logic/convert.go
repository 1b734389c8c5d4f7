package logic

import (
	"time"

	"zerodte-api/internal/types"
	"zerodte-api/pkg/analysis"
)

func toAnalysisResult(r analysis.Result) types.AnalysisResult {
	out := types.AnalysisResult{
		RunID: r.RunID,
		Text:  r.Text,
		Data:  struct{}{},
	}
	if r.Timestamp != nil {
		ts := r.Timestamp.UTC().Format(time.RFC3339)
		out.Timestamp = &ts
	}
	if r.Data != nil {
		out.Data = r.Data
	}
	return out
}
