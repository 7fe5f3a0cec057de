// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package game

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"beatai-api/internal/logic"
	"beatai-api/internal/svc"
	"beatai-api/internal/types"
)

func StartGameHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.StartGameRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, types.BadRequest(err))
			return
		}

		l := logic.NewStartGameLogic(r.Context(), svcCtx)
		resp, err := l.StartGame(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
