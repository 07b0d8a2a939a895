package notify

import "errors"

var (
	ErrStoreClosed  = errors.New("notification store is closed")
	ErrWriteTimeout = errors.New("notification cache write timed out")
	ErrNotStarted   = errors.New("relay not started")
	ErrNotFound     = errors.New("notification not found")
)
