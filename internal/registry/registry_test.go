package registry

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"tutorlink/pkg/types"
)

func messageFrame(roomID, msgID string) *types.Frame {
	return &types.Frame{
		Type:    types.FrameMessage,
		RoomID:  roomID,
		Message: &types.Message{ID: msgID, RoomID: roomID, Content: "hi"},
	}
}

func TestRegistry_DispatchToRegisteredHandler(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	var got []string
	reg.Register("r1", func(m *types.Message) {
		got = append(got, m.ID)
	})

	reg.Dispatch(messageFrame("r1", "m1"))

	if len(got) != 1 || got[0] != "m1" {
		t.Errorf("expected handler to receive m1, got %v", got)
	}
}

func TestRegistry_ReplacementInvokesOnlySecondHandler(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	var first, second int
	reg.Register("r1", func(*types.Message) { first++ })
	reg.Register("r1", func(*types.Message) { second++ })

	reg.Dispatch(messageFrame("r1", "m1"))

	if first != 0 {
		t.Errorf("replaced handler was invoked %d times", first)
	}
	if second != 1 {
		t.Errorf("expected replacement handler once, got %d", second)
	}
	if reg.Len() != 1 {
		t.Errorf("expected one registration after replacement, got %d", reg.Len())
	}
}

func TestRegistry_NoListenerDropsFrame(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	// Must not panic or error.
	reg.Dispatch(messageFrame("r9", "m1"))
}

func TestRegistry_HandlerPanicIsTrapped(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	reg.Register("r1", func(*types.Message) { panic("subscriber bug") })

	// The panic must not escape Dispatch.
	reg.Dispatch(messageFrame("r1", "m1"))

	// And the registry stays usable afterwards.
	var delivered bool
	reg.Register("r2", func(*types.Message) { delivered = true })
	reg.Dispatch(messageFrame("r2", "m2"))
	if !delivered {
		t.Error("registry unusable after a handler panic")
	}
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	var calls int
	reg.Register("r1", func(*types.Message) { calls++ })
	reg.Unregister("r1")
	reg.Unregister("r1") // idempotent

	reg.Dispatch(messageFrame("r1", "m1"))
	if calls != 0 {
		t.Errorf("unregistered handler was invoked %d times", calls)
	}
}

func TestRegistry_NilHandlerUnregisters(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	reg.Register("r1", func(*types.Message) {})
	reg.Register("r1", nil)

	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
}

func TestRegistry_Clear(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	reg.Register("r1", func(*types.Message) {})
	reg.Register("r2", func(*types.Message) {})
	reg.Clear()

	if reg.Len() != 0 {
		t.Errorf("expected empty registry after Clear, got %d", reg.Len())
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Register("r1", func(*types.Message) {})
		}()
		go func() {
			defer wg.Done()
			reg.Dispatch(messageFrame("r1", "m"))
		}()
	}
	wg.Wait()

	if reg.Len() != 1 {
		t.Errorf("expected single registration, got %d", reg.Len())
	}
}
