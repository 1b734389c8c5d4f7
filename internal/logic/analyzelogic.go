package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/internal/svc"
	"zerodte-api/internal/types"
	"zerodte-api/pkg/analysis"
)

var outcomeMessages = map[analysis.TriggerOutcome]string{
	analysis.OutcomeRan:      "Analysis completed",
	analysis.OutcomePaused:   "Scheduler is paused; resume to run analysis",
	analysis.OutcomeCooldown: "Analysis ran recently; try again after the cooldown",
	analysis.OutcomeBusy:     "Analysis already in progress",
	analysis.OutcomeFailed:   "Analysis failed; the previous result is still served",
}

type AnalyzeLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewAnalyzeLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AnalyzeLogic {
	return &AnalyzeLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Analyze runs a manual trigger and returns whatever result is current
// afterwards. A client disconnect does not abort the run.
func (l *AnalyzeLogic) Analyze() (resp *types.AnalyzeResponse, err error) {
	outcome := l.svcCtx.Scheduler.Trigger(context.WithoutCancel(l.ctx))
	l.Infof("manual analysis trigger outcome=%s", outcome)
	return &types.AnalyzeResponse{
		Message: outcomeMessages[outcome],
		Outcome: string(outcome),
		Result:  toAnalysisResult(l.svcCtx.Store.Latest()),
	}, nil
}
