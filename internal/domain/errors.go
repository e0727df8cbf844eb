package domain

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventNameRequired = errors.New("event name required")
	ErrHolderRequired    = errors.New("holder id required")
	ErrAttemptSettled    = errors.New("payment attempt already settled")
	ErrUnitNotFound      = errors.New("unit not found")
	ErrUnitNotAvailable  = errors.New("unit not available")
	ErrVersionConflict   = errors.New("version conflict")
	ErrHoldNotFound      = errors.New("hold not found")
	ErrHoldExpired       = errors.New("hold expired")
	ErrNotHolder         = errors.New("hold belongs to another holder")
	ErrAttemptNotFound   = errors.New("payment attempt not found")
	ErrGatewayTxNotFound = errors.New("gateway transaction not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidID         = errors.New("invalid id")
)
