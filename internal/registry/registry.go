package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"tutorlink/pkg/types"
)

// Handler receives every message delivered to one room.
type Handler func(*types.Message)

// Registry is the room dispatch table: at most one handler per room at any
// time. Registering a handler for a room replaces whatever was there.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger.With().Str("component", "registry").Logger(),
	}
}

// Register installs handler as the room's single listener, overwriting any
// existing one. A nil handler unregisters the room.
func (r *Registry) Register(roomID string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handler == nil {
		delete(r.handlers, roomID)
		return
	}
	r.handlers[roomID] = handler
}

// Unregister removes the room's handler. Idempotent.
func (r *Registry) Unregister(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, roomID)
}

// Dispatch routes a message frame to its room's handler. Frames for rooms
// with no listener are dropped. A panicking handler is trapped and logged;
// a subscriber's failure never propagates to the caller.
func (r *Registry) Dispatch(frame *types.Frame) {
	if frame == nil || frame.Message == nil {
		return
	}

	r.mu.RLock()
	handler, exists := r.handlers[frame.RoomID]
	r.mu.RUnlock()

	if !exists {
		r.logger.Debug().Str("room_id", frame.RoomID).Msg("dropping frame for room with no listener")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Str("room_id", frame.RoomID).Msg("room handler panicked")
		}
	}()
	handler(frame.Message)
}

// Clear removes every registration. Called on full disconnect.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string]Handler)
}

// Len returns the number of registered rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
