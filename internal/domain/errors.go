package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidAssetID    = errors.New("invalid asset id")
	ErrUploadUnavailable = errors.New("upload unavailable")
	ErrProviderFailure   = errors.New("provider failure")
	ErrEmptyFile         = errors.New("empty file")
)
