package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrOrderCodeInUse      = errors.New("order code already in use")
	ErrStateConflict       = errors.New("payment already in another terminal status")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrCallbackRejected    = errors.New("callback rejected")
)
