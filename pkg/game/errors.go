package game

import (
	"context"
	"errors"
	"fmt"

	"beatai-api/pkg/market"
)

var (
	ErrMarketUnavailable = errors.New("market data temporarily unavailable")
	ErrGameNotFound      = errors.New("game not found")
	ErrGameNotActive     = errors.New("game is not active")
	ErrRoundNotFound     = errors.New("round not found")
	ErrPredictionCount   = errors.New("prediction count mismatch")
	ErrAlreadyPicked     = errors.New("round already has a prediction")
	ErrNotPicked         = errors.New("round has no prediction")
	ErrNotDue            = errors.New("round is not due for settlement")
	ErrInvalidDirection  = errors.New("direction must be UP or DOWN")
	ErrInvalidMode       = errors.New("invalid mode, must be FLASH, SPEED, or STANDARD")
	ErrInvalidUsername   = errors.New("username is required")
	ErrSettlementBusy    = errors.New("game settlement in progress")
)

// IsMarketError reports whether err came out of the provider chain.
func IsMarketError(err error) bool {
	var all *market.AllProvidersFailedError
	var pe *market.ProviderError
	return errors.As(err, &all) || errors.As(err, &pe)
}

// marketUnavailable tags provider failures with ErrMarketUnavailable and
// passes everything else through.
func marketUnavailable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || !IsMarketError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrMarketUnavailable, err)
}
