package types

import "errors"

var (
	ErrMalformedFrame   = errors.New("frame is not valid JSON")
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrMissingRoomID    = errors.New("message frame missing room ID")
	ErrInvalidRoomID    = errors.New("room ID must be 1-64 characters, alphanumeric + underscore/hyphen")
	ErrInvalidUserID    = errors.New("user ID must be 1-64 characters, alphanumeric + underscore/hyphen")
	ErrEmptyContent     = errors.New("message content cannot be empty")
	ErrAttachmentTooBig = errors.New("attachment exceeds 5MB limit")
)
