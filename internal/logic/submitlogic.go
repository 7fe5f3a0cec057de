// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"beatai-api/internal/svc"
	"beatai-api/internal/types"
	"beatai-api/pkg/game"
)

type SubmitLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSubmitLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SubmitLogic {
	return &SubmitLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SubmitLogic) Submit(req *types.SubmitRequest) (resp *types.SubmitResponse, err error) {
	if err := validate(l.svcCtx.Validator, req); err != nil {
		return nil, err
	}
	picks := make([]game.Pick, len(req.Predictions))
	for i, p := range req.Predictions {
		picks[i] = game.Pick{RoundID: p.RoundId, Direction: p.Direction}
	}
	sub, err := l.svcCtx.Game.Submit(l.ctx, req.GameId, picks)
	if err != nil {
		return nil, err
	}
	return toSubmitResponse(sub), nil
}
