package service

import "errors"

// Rejection and failure categories surfaced to handlers.
// Wrapped errors carry a short client-safe reason.
var (
	ErrBadRequest           = errors.New("bad request")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrInvalidImageContent  = errors.New("invalid image content")
	ErrNotFound             = errors.New("not found")
	ErrStorageFailure       = errors.New("storage failure")
)
