package logic

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"zerodte-api/internal/svc"
	"zerodte-api/internal/types"
)

type StatusLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewStatusLogic(ctx context.Context, svcCtx *svc.ServiceContext) *StatusLogic {
	return &StatusLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *StatusLogic) Status() (resp *types.StatusResponse, err error) {
	st := l.svcCtx.Scheduler.Status()
	resp = &types.StatusResponse{
		Status:          "running",
		Paused:          st.Paused,
		Running:         st.Running,
		IntervalSeconds: int64(st.Interval / time.Second),
		CooldownSeconds: int64(st.Cooldown / time.Second),
	}
	if st.LastRunTime != nil {
		last := st.LastRunTime.UTC().Format(time.RFC3339)
		resp.LastRunTime = &last
	}
	return resp, nil
}
