// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"beatai-api/internal/svc"
	"beatai-api/internal/types"
)

type WarmLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewWarmLogic(ctx context.Context, svcCtx *svc.ServiceContext) *WarmLogic {
	return &WarmLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *WarmLogic) Warm(req *types.WarmRequest) (resp *types.WarmResponse, err error) {
	if err := validate(l.svcCtx.Validator, req); err != nil {
		return nil, err
	}
	if err := l.svcCtx.Game.WarmGame(l.ctx, req.GameId); err != nil {
		return nil, err
	}
	return &types.WarmResponse{Status: "ok"}, nil
}
