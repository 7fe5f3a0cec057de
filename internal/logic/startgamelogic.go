// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"beatai-api/internal/svc"
	"beatai-api/internal/types"
)

type StartGameLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewStartGameLogic(ctx context.Context, svcCtx *svc.ServiceContext) *StartGameLogic {
	return &StartGameLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *StartGameLogic) StartGame(req *types.StartGameRequest) (resp *types.StartGameResponse, err error) {
	if err := validate(l.svcCtx.Validator, req); err != nil {
		return nil, err
	}
	started, err := l.svcCtx.Game.StartGame(l.ctx, req.Username, req.Mode)
	if err != nil {
		return nil, err
	}

	resp = &types.StartGameResponse{
		GameId: started.GameID,
		Mode:   string(started.Mode),
		Rounds: make([]types.StartedRound, len(started.Rounds)),
	}
	for i, r := range started.Rounds {
		resp.Rounds[i] = toStartedRound(r)
	}
	return resp, nil
}
