package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tutorlink/internal/rest"
	"tutorlink/pkg/types"
)

// Status is one observation of a room's lifecycle state. RemainingSeconds
// is set only while the room is IN_PROGRESS: the seconds left in the expiry
// window computed from the room's creation time.
type Status struct {
	Room             types.Room
	RemainingSeconds *int
}

// Controller tracks room lifecycle status. The backend is authoritative;
// the controller only reflects what the server reports, with one client-side
// rule: within a session, the observed status never moves backward.
type Controller struct {
	rest   *rest.Client
	window time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	highest map[string]types.RoomStatus
}

// NewController creates a controller with the given expiry window (the time
// a newly created room stays joinable before the tutor must act).
func NewController(restClient *rest.Client, window time.Duration, logger zerolog.Logger) *Controller {
	return &Controller{
		rest:    restClient,
		window:  window,
		logger:  logger.With().Str("component", "lifecycle").Logger(),
		highest: make(map[string]types.RoomStatus),
	}
}

// GetStatus fetches the room's current status and computes the remaining
// expiry window. A server response that would regress the status is clamped
// to the highest state already observed this session.
func (c *Controller) GetStatus(ctx context.Context, roomID string) (*Status, error) {
	room, err := c.rest.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	room.Status = c.clamp(roomID, room.Status)

	status := &Status{Room: *room}
	if room.Status == types.StatusInProgress {
		remaining := int(c.window.Seconds()) - int(time.Since(room.CreatedAt).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		status.RemainingSeconds = &remaining
	}
	return status, nil
}

// clamp records the observed status and returns the highest state seen for
// the room so far. Regressions are logged, never reflected.
func (c *Controller) clamp(roomID string, observed types.RoomStatus) types.RoomStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.highest[roomID]
	if ok && observed.Rank() < cached.Rank() {
		c.logger.Warn().
			Str("room_id", roomID).
			Str("observed", string(observed)).
			Str("cached", string(cached)).
			Msg("server reported a status regression, keeping cached state")
		return cached
	}
	c.highest[roomID] = observed
	return observed
}

// SubmitReady transitions a room IN_PROGRESS -> SUBMITTED. Tutor action;
// applied optimistically and rolled back if the backend rejects it
// (rest.ErrForbidden for role violations).
func (c *Controller) SubmitReady(ctx context.Context, roomID string) error {
	return c.transition(ctx, roomID, types.StatusSubmitted, c.rest.SubmitRoom)
}

// Confirm transitions a room SUBMITTED -> CONFIRMED. Student action; after
// it succeeds, messaging in the room is unlocked.
func (c *Controller) Confirm(ctx context.Context, roomID string) error {
	return c.transition(ctx, roomID, types.StatusConfirmed, c.rest.ConfirmRoom)
}

// transition applies the optimistic-update pattern: record the target state
// locally, issue the authoritative call, roll back on rejection.
func (c *Controller) transition(ctx context.Context, roomID string, target types.RoomStatus, call func(context.Context, string) error) error {
	c.mu.Lock()
	previous, hadPrevious := c.highest[roomID]
	if !hadPrevious || target.Rank() > previous.Rank() {
		c.highest[roomID] = target
	}
	c.mu.Unlock()

	if err := call(ctx, roomID); err != nil {
		c.mu.Lock()
		if hadPrevious {
			c.highest[roomID] = previous
		} else {
			delete(c.highest, roomID)
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// Forget drops the cached status for a room, e.g. after the room itself is
// deleted.
func (c *Controller) Forget(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.highest, roomID)
}
