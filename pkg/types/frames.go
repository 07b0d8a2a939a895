package types

import (
	"encoding/json"
	"strings"
	"time"
)

// FrameType discriminates inbound socket frames.
type FrameType string

const (
	FrameMessage      FrameType = "MESSAGE"
	FrameNotification FrameType = "NOTIFICATION"
)

// Frame is the decoded form of one inbound socket frame. Exactly one of
// Message or Notification is non-nil, matching Type.
type Frame struct {
	Type         FrameType
	RoomID       string
	Message      *Message
	Notification *Notification
}

// OutboundMessage is the single wire shape for sends. File fields are only
// present when an attachment is inlined.
type OutboundMessage struct {
	Type     FrameType `json:"type"`
	RoomID   string    `json:"roomId"`
	Content  string    `json:"content"`
	FileName string    `json:"fileName,omitempty"`
	FileType string    `json:"fileType,omitempty"`
	FileSize int64     `json:"fileSize,omitempty"`
	FileData string    `json:"fileData,omitempty"`
}

// frameEnvelope is the union of every field any inbound frame may carry.
// The backend is not consistent about notification field names, so the
// alternates (message/description) are normalized during decode.
type frameEnvelope struct {
	Type             string `json:"type"`
	ID               string `json:"id"`
	RoomID           string `json:"roomId"`
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	Content          string `json:"content"`
	FileName         string `json:"fileName"`
	FileType         string `json:"fileType"`
	FileSize         int64  `json:"fileSize"`
	FileURL          string `json:"fileUrl"`
	CreatedAt        string `json:"createdAt"`
	Title            string `json:"title"`
	MessageAlt       string `json:"message"`
	DescriptionAlt   string `json:"description"`
	NotificationType string `json:"notificationType"`
}

// DecodeFrame parses one raw socket frame into its typed form. Callers treat
// any returned error as a protocol violation: the frame is dropped, never
// surfaced past the dispatch boundary.
func DecodeFrame(data []byte) (*Frame, error) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedFrame
	}

	switch FrameType(strings.ToUpper(env.Type)) {
	case FrameMessage:
		if env.RoomID == "" {
			return nil, ErrMissingRoomID
		}
		return &Frame{
			Type:   FrameMessage,
			RoomID: env.RoomID,
			Message: &Message{
				ID:        env.ID,
				RoomID:    env.RoomID,
				UserID:    env.UserID,
				Email:     env.Email,
				Content:   env.Content,
				FileName:  env.FileName,
				FileType:  env.FileType,
				FileSize:  env.FileSize,
				FileURL:   env.FileURL,
				CreatedAt: parseWireTime(env.CreatedAt),
			},
		}, nil

	case FrameNotification:
		title := env.Title
		if title == "" {
			title = env.MessageAlt
		}
		content := env.Content
		if content == "" {
			content = env.DescriptionAlt
		}
		kind := env.NotificationType
		if kind == "" {
			kind = string(FrameNotification)
		}
		return &Frame{
			Type: FrameNotification,
			Notification: &Notification{
				ID:        env.ID,
				UserID:    env.UserID,
				Title:     title,
				Content:   content,
				Type:      kind,
				CreatedAt: parseWireTime(env.CreatedAt),
			},
		}, nil

	default:
		return nil, ErrUnknownFrameType
	}
}

// parseWireTime accepts the timestamp formats the backend has been seen to
// emit. A missing or unparsable timestamp falls back to receipt time rather
// than failing the whole frame.
func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}
