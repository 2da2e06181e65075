package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniZap4/notes-server/domain"
)

type fakeConn struct {
	mu       sync.Mutex
	written  []domain.Event
	failing  bool
	closed   bool
	incoming chan map[string]any
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan map[string]any)}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.written = append(c.written, v.(domain.Event))
	return nil
}

func (c *fakeConn) ReadJSON(v any) error {
	msg, ok := <-c.incoming
	if !ok {
		return errors.New("closed")
	}
	*(v.(*map[string]any)) = msg
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.written...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHubBroadcastsToClients(t *testing.T) {
	h, _ := startHub(t)
	a, b := newFakeConn(), newFakeConn()
	h.Register(a)
	h.Register(b)
	require.Eventually(t, func() bool { return h.Clients() == 2 }, time.Second, 5*time.Millisecond)

	h.Notify(domain.Event{Type: domain.FolderCopied, FolderIDs: []int64{3, 4}})

	for _, c := range []*fakeConn{a, b} {
		require.Eventually(t, func() bool { return len(c.events()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, []int64{3, 4}, c.events()[0].FolderIDs)
	}
}

func TestHubDropsFailingClient(t *testing.T) {
	h, _ := startHub(t)
	good, bad := newFakeConn(), newFakeConn()
	bad.failing = true
	h.Register(good)
	h.Register(bad)

	h.Notify(domain.Event{Type: domain.NoteCreated})

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, bad.isClosed())
	assert.False(t, good.isClosed())
}

func TestHubNotifyNeverBlocks(t *testing.T) {
	h := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Notify(domain.Event{Type: domain.NoteUpdated})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked without a running hub")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := newFakeConn()
	go h.HandleConnection(c)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	c.incoming <- map[string]any{"type": "subscribe"}
	cancel()

	require.Eventually(t, c.isClosed, time.Second, 5*time.Millisecond)
	assert.Zero(t, h.Clients())

	// registering after shutdown closes the connection instead of hanging
	late := newFakeConn()
	h.Register(late)
	assert.True(t, late.isClosed())
	close(c.incoming)
}
