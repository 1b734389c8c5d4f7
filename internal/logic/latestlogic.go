package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/internal/svc"
	"zerodte-api/internal/types"
)

type LatestLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewLatestLogic(ctx context.Context, svcCtx *svc.ServiceContext) *LatestLogic {
	return &LatestLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *LatestLogic) Latest() (resp *types.AnalysisResult, err error) {
	r := toAnalysisResult(l.svcCtx.Store.Latest())
	return &r, nil
}
