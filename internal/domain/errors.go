package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrLoadInFlight       = errors.New("a load is already in flight")
	ErrNoMorePages        = errors.New("no more pages")
	ErrRetriesExhausted   = errors.New("retries exhausted")
	ErrIngredientMismatch = errors.New("ingredient ids and quantities differ in length")
)
