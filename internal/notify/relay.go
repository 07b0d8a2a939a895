package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tutorlink/internal/connection"
	"tutorlink/internal/rest"
	"tutorlink/pkg/types"
)

// Alerter raises a user-visible alert for a freshly pushed notification.
type Alerter interface {
	Alert(types.Notification)
}

// logAlerter is the default alerter: it just logs.
type logAlerter struct {
	logger zerolog.Logger
}

func (a logAlerter) Alert(n types.Notification) {
	a.logger.Info().Str("title", n.Title).Msg("notification")
}

// Relay subscribes to NOTIFICATION frames and maintains the process-wide
// unread feed, persisted per user so it survives restarts. It coexists with
// the room registry on the same connection: the two consumers filter on
// disjoint frame types.
type Relay struct {
	conn    *connection.Manager
	rest    *rest.Client
	store   *Store
	alerter Alerter
	logger  zerolog.Logger

	mu      sync.Mutex
	started bool
	userID  string
	items   []types.Notification
	unread  int
}

// NewRelay creates a relay. A nil alerter falls back to logging.
func NewRelay(conn *connection.Manager, restClient *rest.Client, store *Store, alerter Alerter, logger zerolog.Logger) *Relay {
	componentLogger := logger.With().Str("component", "notify").Logger()
	if alerter == nil {
		alerter = logAlerter{logger: componentLogger}
	}
	return &Relay{
		conn:    conn,
		rest:    restClient,
		store:   store,
		alerter: alerter,
		logger:  componentLogger,
	}
}

// Start loads the user's cached feed, merges a best-effort initial REST
// fetch, and registers for pushed notifications. Safe to call once per
// process; later calls are no-ops.
func (r *Relay) Start(ctx context.Context, userID string) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.userID = userID

	items, unread, err := r.store.Load(userID)
	if err != nil {
		// A broken cache is not fatal, the feed restarts empty.
		r.logger.Warn().Err(err).Msg("failed to load notification cache")
		items, unread = nil, 0
	}
	r.items = items
	r.unread = unread

	// The REST path for notifications is unreliable; on failure the relay
	// runs push-only.
	for _, n := range r.rest.FetchNotifications(ctx, userID, 1, 50) {
		if n.ID == "" || r.containsLocked(n.ID) {
			continue
		}
		r.items = append(r.items, n)
		if !n.Read {
			r.unread++
		}
	}

	r.persistLocked()
	r.mu.Unlock()

	r.conn.Consume(types.FrameNotification, r.onPush)
	r.logger.Info().Str("user_id", userID).Int("cached", len(items)).Msg("notification relay started")
	return nil
}

func (r *Relay) containsLocked(id string) bool {
	for _, n := range r.items {
		if n.ID == id {
			return true
		}
	}
	return false
}

// persistLocked writes the whole feed back to the cache. Persistence
// failures are logged, not surfaced: the in-memory feed stays correct.
func (r *Relay) persistLocked() {
	if err := r.store.Save(r.userID, r.items, r.unread); err != nil {
		r.logger.Warn().Err(err).Msg("failed to persist notification cache")
	}
}

// onPush handles one pushed NOTIFICATION frame.
func (r *Relay) onPush(frame *types.Frame) {
	if frame == nil || frame.Notification == nil {
		return
	}
	n := *frame.Notification

	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	if n.UserID != "" && n.UserID != r.userID {
		r.mu.Unlock()
		return
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	} else if r.containsLocked(n.ID) {
		r.mu.Unlock()
		return
	}

	n.UserID = r.userID
	n.Read = false
	r.items = append([]types.Notification{n}, r.items...)
	r.unread++
	r.persistLocked()
	r.mu.Unlock()

	r.alerter.Alert(n)
}

// Notifications returns a copy of the feed, newest first.
func (r *Relay) Notifications() []types.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Unread returns the current unread count.
func (r *Relay) Unread() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

// MarkRead marks one notification read. The unread counter only moves on
// the first unread-to-read transition; repeated calls are no-ops.
func (r *Relay) MarkRead(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}
	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		if !r.items[i].Read {
			r.items[i].Read = true
			r.unread--
			r.persistLocked()
		}
		return nil
	}
	return ErrNotFound
}

// MarkAllRead marks every notification read and zeroes the counter.
func (r *Relay) MarkAllRead() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}
	for i := range r.items {
		r.items[i].Read = true
	}
	r.unread = 0
	r.persistLocked()
	return nil
}

// Delete removes one notification; deleting an unread one decrements the
// counter.
func (r *Relay) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}
	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		if !r.items[i].Read {
			r.unread--
		}
		r.items = append(r.items[:i], r.items[i+1:]...)
		r.persistLocked()
		return nil
	}
	return ErrNotFound
}
