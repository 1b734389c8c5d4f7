package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/internal/svc"
	"zerodte-api/internal/types"
)

type ShareLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewShareLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ShareLogic {
	return &ShareLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Share publishes the latest result to the daily Google Doc.
func (l *ShareLogic) Share() (resp *types.ShareResponse, err error) {
	url, err := l.svcCtx.Publisher.Publish(l.ctx, l.svcCtx.Store.Latest())
	if err != nil {
		l.Errorf("share latest analysis: %v", err)
		return nil, err
	}
	return &types.ShareResponse{URL: url}, nil
}
