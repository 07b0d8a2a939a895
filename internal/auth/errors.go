package auth

import "errors"

var (
	ErrNoToken = errors.New("credentials file has no token")
	ErrNoUser  = errors.New("credentials file has no valid user")
)
