package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/internal/svc"
	"zerodte-api/internal/types"
)

type RunLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewRunLogic(ctx context.Context, svcCtx *svc.ServiceContext) *RunLogic {
	return &RunLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Run serves the in-memory result when its id matches, else the archive.
func (l *RunLogic) Run(req *types.RunRequest) (resp *types.AnalysisResult, err error) {
	if latest := l.svcCtx.Store.Latest(); latest.Ready() && latest.RunID == req.RunID {
		r := toAnalysisResult(latest)
		return &r, nil
	}
	found, err := l.svcCtx.Archive.LoadRun(l.ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	r := toAnalysisResult(found)
	return &r, nil
}
