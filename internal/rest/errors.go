package rest

import "errors"

var (
	ErrRequestFailed = errors.New("request failed")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrBadEnvelope   = errors.New("unrecognized response envelope")
)
