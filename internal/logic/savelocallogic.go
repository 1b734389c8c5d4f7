package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/internal/svc"
	"zerodte-api/internal/types"
)

type SaveLocalLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSaveLocalLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SaveLocalLogic {
	return &SaveLocalLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SaveLocalLogic) SaveLocal() (resp *types.SaveLocalResponse, err error) {
	path, err := l.svcCtx.Reports.Append(l.svcCtx.Store.Latest())
	if err != nil {
		l.Errorf("save local report: %v", err)
		return nil, err
	}
	return &types.SaveLocalResponse{Message: "Analysis saved locally", Path: path}, nil
}
