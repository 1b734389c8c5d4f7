package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"

	"zerodte-api/internal/svc"
	"zerodte-api/internal/types"
)

type PauseLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPauseLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PauseLogic {
	return &PauseLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *PauseLogic) Pause() (resp *types.PauseResponse, err error) {
	l.svcCtx.Scheduler.Pause()
	return &types.PauseResponse{Paused: true}, nil
}

// Resume clears the pause flag before answering; the follow-up run happens
// in the background.
func (l *PauseLogic) Resume() (resp *types.PauseResponse, err error) {
	l.svcCtx.Scheduler.Unpause()
	ctx := context.WithoutCancel(l.ctx)
	threading.GoSafe(func() {
		outcome := l.svcCtx.Scheduler.Resume(ctx)
		logx.WithContext(ctx).Infof("resume trigger outcome=%s", outcome)
	})
	return &types.PauseResponse{Paused: false}, nil
}
