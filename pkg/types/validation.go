package types

import (
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// IsValidRoomID reports whether id is usable as a room identifier.
func IsValidRoomID(id string) bool {
	return idRegex.MatchString(id)
}

// IsValidUserID reports whether id is usable as a user identifier.
func IsValidUserID(id string) bool {
	return idRegex.MatchString(id)
}

// Validate checks an outbound message before it is put on the wire.
func (m *OutboundMessage) Validate() error {
	if !IsValidRoomID(m.RoomID) {
		return ErrInvalidRoomID
	}
	if m.Content == "" && m.FileData == "" {
		return ErrEmptyContent
	}
	if m.FileSize > MaxAttachmentSize {
		return ErrAttachmentTooBig
	}
	return nil
}

// Validate checks an attachment against the client-side size cap. The cap
// applies to the raw file size, before base64 inflation.
func (a *Attachment) Validate() error {
	if a.FileSize > MaxAttachmentSize {
		return ErrAttachmentTooBig
	}
	return nil
}
