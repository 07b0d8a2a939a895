package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tutorlink/internal/rest"
	"tutorlink/pkg/types"
)

type fixedToken string

func (f fixedToken) Token() (string, error) { return string(f), nil }

func (f fixedToken) User() (*types.User, error) {
	return &types.User{UserID: "u1", Role: types.RoleUser}, nil
}

// roomServer serves GET /room/{id} from mutable state and records
// submit/confirm calls.
type roomServer struct {
	mu        sync.Mutex
	status    types.RoomStatus
	createdAt time.Time
	forbidden bool
	server    *httptest.Server
}

func newRoomServer(t *testing.T, status types.RoomStatus, createdAt time.Time) *roomServer {
	t.Helper()
	rs := &roomServer{status: status, createdAt: createdAt}
	rs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		defer rs.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/submit"), strings.HasSuffix(r.URL.Path, "/confirm"):
			if rs.forbidden {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			fmt.Fprintf(w, `{"id":"r1","status":"%s","createdAt":"%s"}`,
				rs.status, rs.createdAt.UTC().Format(time.RFC3339))
		}
	}))
	t.Cleanup(rs.server.Close)
	return rs
}

func (rs *roomServer) setStatus(s types.RoomStatus) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.status = s
}

func newController(t *testing.T, rs *roomServer) *Controller {
	t.Helper()
	client := rest.NewClient(rs.server.URL, rs.server.Client(), fixedToken("tok"), zerolog.Nop())
	return NewController(client, 5*time.Minute, zerolog.Nop())
}

func TestGetStatus_RemainingSeconds(t *testing.T) {
	// Room created 290 seconds ago within a 300 second window.
	rs := newRoomServer(t, types.StatusInProgress, time.Now().Add(-290*time.Second))
	ctrl := newController(t, rs)

	status, err := ctrl.GetStatus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.RemainingSeconds == nil {
		t.Fatal("expected remaining seconds while IN_PROGRESS")
	}
	if got := *status.RemainingSeconds; got < 8 || got > 11 {
		t.Errorf("expected roughly 10 remaining seconds, got %d", got)
	}
}

func TestGetStatus_ExpiredWindowClampsToZero(t *testing.T) {
	rs := newRoomServer(t, types.StatusInProgress, time.Now().Add(-10*time.Minute))
	ctrl := newController(t, rs)

	status, err := ctrl.GetStatus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.RemainingSeconds == nil || *status.RemainingSeconds != 0 {
		t.Errorf("expected 0 remaining seconds, got %v", status.RemainingSeconds)
	}
	// Expiry does not change status, the server still owns it.
	if status.Room.Status != types.StatusInProgress {
		t.Errorf("expiry must not mutate status, got %s", status.Room.Status)
	}
}

func TestGetStatus_NoCountdownOutsideInProgress(t *testing.T) {
	rs := newRoomServer(t, types.StatusConfirmed, time.Now())
	ctrl := newController(t, rs)

	status, err := ctrl.GetStatus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.RemainingSeconds != nil {
		t.Errorf("expected nil remaining seconds for CONFIRMED, got %d", *status.RemainingSeconds)
	}
}

func TestGetStatus_NeverRegresses(t *testing.T) {
	rs := newRoomServer(t, types.StatusConfirmed, time.Now())
	ctrl := newController(t, rs)

	status, err := ctrl.GetStatus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Room.Status != types.StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", status.Room.Status)
	}

	// A stale read from the server must not roll the client back.
	rs.setStatus(types.StatusSubmitted)
	status, err = ctrl.GetStatus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Room.Status != types.StatusConfirmed {
		t.Errorf("status regressed to %s", status.Room.Status)
	}
}

func TestSubmitReady_ForbiddenRollsBack(t *testing.T) {
	rs := newRoomServer(t, types.StatusInProgress, time.Now())
	ctrl := newController(t, rs)

	if _, err := ctrl.GetStatus(context.Background(), "r1"); err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}

	rs.mu.Lock()
	rs.forbidden = true
	rs.mu.Unlock()

	err := ctrl.SubmitReady(context.Background(), "r1")
	if !errors.Is(err, rest.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Rejected transition must not stick: the room still reads IN_PROGRESS.
	status, err := ctrl.GetStatus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Room.Status != types.StatusInProgress {
		t.Errorf("optimistic submit not rolled back, status %s", status.Room.Status)
	}
}

func TestConfirm_AdvancesStatus(t *testing.T) {
	rs := newRoomServer(t, types.StatusSubmitted, time.Now())
	ctrl := newController(t, rs)

	if err := ctrl.Confirm(context.Background(), "r1"); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	// Even if the server read lags, the confirmed state holds.
	status, err := ctrl.GetStatus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Room.Status != types.StatusConfirmed {
		t.Errorf("expected CONFIRMED after Confirm, got %s", status.Room.Status)
	}
}

func TestCountdown_ReachesZeroAndCloses(t *testing.T) {
	c := newCountdown(3, time.Millisecond)
	defer c.Stop()

	var last int = -1
	for remaining := range c.C {
		last = remaining
	}
	if last != 0 {
		t.Errorf("expected countdown to end at 0, got %d", last)
	}
}

func TestCountdown_StopIsIdempotent(t *testing.T) {
	c := newCountdown(1000, time.Millisecond)
	c.Stop()
	c.Stop()

	select {
	case _, open := <-c.C:
		if open {
			// A tick raced the stop; the channel must still close.
			if _, open := <-c.C; open {
				t.Error("channel still open after Stop")
			}
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after Stop")
	}
}
