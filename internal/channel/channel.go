package channel

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"tutorlink/internal/connection"
	"tutorlink/internal/registry"
	"tutorlink/internal/rest"
	"tutorlink/pkg/types"
)

const defaultPageSize = 20

// Channel is the messaging API the UI talks to. It composes the connection
// manager and the room registry, and merges push and poll delivery through
// one per-room dedup log.
type Channel struct {
	conn     *connection.Manager
	registry *registry.Registry
	rest     *rest.Client
	logger   zerolog.Logger

	mu   sync.Mutex
	logs map[string]*Log
}

// NewChannel wires the channel into the connection's frame fan-out: MESSAGE
// frames route through the registry, and an explicit disconnect clears all
// room subscriptions and logs.
func NewChannel(conn *connection.Manager, reg *registry.Registry, restClient *rest.Client, logger zerolog.Logger) *Channel {
	c := &Channel{
		conn:     conn,
		registry: reg,
		rest:     restClient,
		logger:   logger.With().Str("component", "channel").Logger(),
		logs:     make(map[string]*Log),
	}

	conn.Consume(types.FrameMessage, reg.Dispatch)
	conn.OnDisconnect(func() {
		reg.Clear()
		c.clearLogs()
	})
	return c
}

func (c *Channel) logFor(roomID string) *Log {
	c.mu.Lock()
	defer c.mu.Unlock()

	log, ok := c.logs[roomID]
	if !ok {
		log = NewLog()
		c.logs[roomID] = log
	}
	return log
}

func (c *Channel) clearLogs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = make(map[string]*Log)
}

// JoinRoom ensures the connection is open, installs onMessage as the room's
// single listener and loads the latest history page. The returned backlog is
// the merged, createdAt-ordered sequence; onMessage fires for each message
// that arrives after the join and survives dedup.
func (c *Channel) JoinRoom(ctx context.Context, roomID string, onMessage func(types.Message)) ([]types.Message, error) {
	if !types.IsValidRoomID(roomID) {
		return nil, types.ErrInvalidRoomID
	}

	if err := c.conn.Connect(ctx); err != nil {
		return nil, err
	}

	log := c.logFor(roomID)
	c.registry.Register(roomID, func(msg *types.Message) {
		if !log.Append(msg) {
			return
		}
		if onMessage != nil {
			onMessage(*msg)
		}
	})

	for _, msg := range c.rest.FetchHistory(ctx, roomID, 1, defaultPageSize) {
		m := msg
		log.Append(&m)
	}

	c.logger.Info().Str("room_id", roomID).Int("backlog", log.Len()).Msg("joined room")
	return log.Messages(), nil
}

// FetchHistory loads one more history page for a room and merges it into
// the room's sequence. Returns the full merged sequence; failures degrade
// to whatever is already known.
func (c *Channel) FetchHistory(ctx context.Context, roomID string, pageNo, pageSize int) []types.Message {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	log := c.logFor(roomID)
	for _, msg := range c.rest.FetchHistory(ctx, roomID, pageNo, pageSize) {
		m := msg
		log.Append(&m)
	}
	return log.Messages()
}

// Send publishes a message to a room, inlining the attachment if present.
// Errors propagate: retry UX belongs to the caller, this layer folds in at
// most the one reconnect attempt inside the connection manager.
func (c *Channel) Send(ctx context.Context, roomID, content string, attachment *types.Attachment) error {
	out := &types.OutboundMessage{
		Type:    types.FrameMessage,
		RoomID:  roomID,
		Content: content,
	}
	if attachment != nil {
		if err := attachment.Validate(); err != nil {
			return err
		}
		out.FileName = attachment.FileName
		out.FileType = attachment.FileType
		out.FileSize = attachment.FileSize
		out.FileData = attachment.FileData
	}

	return c.conn.Send(ctx, out)
}

// LeaveRoom removes the room's listener. The shared connection stays up:
// other rooms and the notification relay may still need it.
func (c *Channel) LeaveRoom(roomID string) {
	c.registry.Unregister(roomID)
	c.logger.Debug().Str("room_id", roomID).Msg("left room")
}

// Rooms lists the caller's chat rooms.
func (c *Channel) Rooms(ctx context.Context) ([]types.Room, error) {
	return c.rest.ListRooms(ctx)
}

// DeleteRoom removes a room server-side and drops its local listener and
// message log. Already-deleted rooms are treated as success.
func (c *Channel) DeleteRoom(ctx context.Context, roomID string) error {
	if err := c.rest.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	c.registry.Unregister(roomID)
	c.mu.Lock()
	delete(c.logs, roomID)
	c.mu.Unlock()
	return nil
}
