package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrRateLimited      = errors.New("price oracle rate limited")
	ErrOracleTimeout    = errors.New("price oracle timeout")
)

// PriceUnavailableError reports an asset with no usable price. Required
// assets abort the calculation; optional ones are excluded and logged.
type PriceUnavailableError struct {
	AssetKey string
	Required bool
}

func (e *PriceUnavailableError) Error() string {
	if e.Required {
		return fmt.Sprintf("price unavailable for required asset %s", e.AssetKey)
	}
	return fmt.Sprintf("price unavailable for asset %s", e.AssetKey)
}

func (e *PriceUnavailableError) Unwrap() error {
	return ErrPriceUnavailable
}
