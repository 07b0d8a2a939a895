package types

import (
	"time"
)

// Role is the account role stored alongside the auth token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleTutor Role = "TUTOR"
	RoleAdmin Role = "ADMIN"
)

// User is the profile half of the persisted auth session.
type User struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// RoomStatus is the server-authoritative lifecycle state of a chat room.
// It only ever advances IN_PROGRESS -> SUBMITTED -> CONFIRMED.
type RoomStatus string

const (
	StatusInProgress RoomStatus = "IN_PROGRESS"
	StatusSubmitted  RoomStatus = "SUBMITTED"
	StatusConfirmed  RoomStatus = "CONFIRMED"
)

// Rank orders statuses along the lifecycle. Unknown statuses rank lowest
// so they can never mask a state the client has already observed.
func (s RoomStatus) Rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusSubmitted:
		return 2
	case StatusConfirmed:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the three lifecycle states.
func (s RoomStatus) Valid() bool {
	return s.Rank() > 0
}

// Room represents one tutor/student chat room.
type Room struct {
	ID              string     `json:"id"`
	ParticipantName string     `json:"participantName"`
	PostTitle       string     `json:"postTitle"`
	Status          RoomStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastMessage     string     `json:"lastMessage,omitempty"`
}

// Message is a single chat message. Messages are immutable once created
// and are deduplicated by ID wherever push and poll delivery overlap.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Content   string    `json:"content"`
	FileName  string    `json:"fileName,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	FileSize  int64     `json:"fileSize,omitempty"`
	FileURL   string    `json:"fileUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaxAttachmentSize caps inlined file payloads before base64 encoding.
const MaxAttachmentSize = 5 * 1024 * 1024

// Attachment is an outbound file payload, inlined base64 on the wire.
type Attachment struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	FileData string `json:"fileData"`
}

// Notification is one entry in the per-user notification feed. ID is the
// dedup key; Read flips exactly once per notification for counter purposes.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}
