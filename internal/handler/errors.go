package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"beatai-api/internal/types"
	"beatai-api/pkg/game"
	"beatai-api/pkg/timeframe"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{game.ErrInvalidMode, http.StatusBadRequest},
	{game.ErrInvalidUsername, http.StatusBadRequest},
	{game.ErrInvalidDirection, http.StatusBadRequest},
	{game.ErrPredictionCount, http.StatusBadRequest},
	{game.ErrGameNotActive, http.StatusBadRequest},
	{game.ErrGameNotFound, http.StatusNotFound},
	{game.ErrRoundNotFound, http.StatusNotFound},
	{game.ErrAlreadyPicked, http.StatusConflict},
	{game.ErrSettlementBusy, http.StatusConflict},
	{game.ErrMarketUnavailable, http.StatusServiceUnavailable},
}

// ErrorHandler renders errors as {"error": "..."} with a status derived from
// the error. Install it with httpx.SetErrorHandlerCtx.
func ErrorHandler(ctx context.Context, err error) (int, any) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.WithContext(ctx).Errorf("request failed status=%d err=%v", status, err)
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return status, &types.ErrorResponse{Error: msg}
}

// StatusOf maps an error to its HTTP status code.
func StatusOf(err error) int {
	var badReq *types.BadRequestError
	if errors.As(err, &badReq) {
		return http.StatusBadRequest
	}
	var tfErr *timeframe.InvalidTimeframeError
	if errors.As(err, &tfErr) {
		return http.StatusBadRequest
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	if game.IsMarketError(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
