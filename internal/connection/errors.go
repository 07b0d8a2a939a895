package connection

import "errors"

var (
	ErrNotConnected     = errors.New("not connected")
	ErrConnectTimeout   = errors.New("connect timed out")
	ErrRetriesExhausted = errors.New("reconnect retries exhausted")
	ErrWriteTimeout     = errors.New("write timed out")
	ErrManagerClosed    = errors.New("connection manager disposed")
)
