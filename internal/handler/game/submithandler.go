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

func SubmitHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SubmitRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, types.BadRequest(err))
			return
		}

		l := logic.NewSubmitLogic(r.Context(), svcCtx)
		resp, err := l.Submit(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
