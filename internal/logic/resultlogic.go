// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"beatai-api/internal/svc"
	"beatai-api/internal/types"
)

type ResultLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewResultLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ResultLogic {
	return &ResultLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ResultLogic) Result(req *types.ResultRequest) (resp *types.ResultResponse, err error) {
	if err := validate(l.svcCtx.Validator, req); err != nil {
		return nil, err
	}
	res, err := l.svcCtx.Game.Result(l.ctx, req.GameId)
	if err != nil {
		return nil, err
	}
	return toResultResponse(res), nil
}
