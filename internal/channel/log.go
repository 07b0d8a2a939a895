package channel

import (
	"sort"
	"sync"

	"tutorlink/pkg/types"
)

// Log is one room's in-memory message sequence. Push delivery and history
// polling are independent producers that can both carry the same logical
// message, so every append goes through the same id-keyed dedup: the
// first-seen message for an ID wins, later arrivals are ignored.
type Log struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	messages []types.Message
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{seen: make(map[string]struct{})}
}

// Append merges one message into the sequence. Returns true if the message
// was new, false if its ID was already present.
func (l *Log) Append(msg *types.Message) bool {
	if msg == nil || msg.ID == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[msg.ID]; dup {
		return false
	}
	l.seen[msg.ID] = struct{}{}
	l.messages = append(l.messages, *msg)
	return true
}

// Messages returns a copy of the sequence ordered by createdAt. Ordering is
// applied here because push and poll interleave with no relative guarantee.
func (l *Log) Messages() []types.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.Message, len(l.messages))
	copy(out, l.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of distinct messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
