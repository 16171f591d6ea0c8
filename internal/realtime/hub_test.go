package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = time.Second
	tick    = 10 * time.Millisecond
)

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []Event
	closed bool
	full   bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(ev Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.full {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) named(name string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, ev := range f.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) lastSnapshot(t *testing.T) []OnlineUser {
	t.Helper()
	evs := f.named(EventGetUsers)
	require.NotEmpty(t, evs)
	users, ok := evs[len(evs)-1].Data.([]OnlineUser)
	require.True(t, ok)
	return users
}

type recordingPresence struct {
	mu      sync.Mutex
	changes []string
}

func (p *recordingPresence) UserOnline(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, "+"+id)
}

func (p *recordingPresence) UserOffline(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, "-"+id)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return hub, cancel
}

func TestHub_FirstAnnouncementWins(t *testing.T) {
	hub, _ := startHub(t)
	a, b := newFakeConn("s1"), newFakeConn("s2")
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))

	assert.True(t, hub.Announce("s1", "u1"))
	assert.False(t, hub.Announce("s2", "u1"))

	id, ok := hub.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "s1", id)
	assert.Equal(t, []OnlineUser{{UserID: "u1", SocketID: "s1"}}, hub.Snapshot())
}

func TestHub_AnnounceRequiresRegisteredConnection(t *testing.T) {
	hub, _ := startHub(t)
	assert.False(t, hub.Announce("ghost", "u1"))
	assert.Empty(t, hub.Snapshot())
}

func TestHub_SnapshotBroadcastOnAddAndRemove(t *testing.T) {
	hub, _ := startHub(t)
	a, b := newFakeConn("s1"), newFakeConn("s2")
	hub.Register(a)
	hub.Register(b)

	hub.Announce("s1", "u1")
	assert.Equal(t, []OnlineUser{{UserID: "u1", SocketID: "s1"}}, b.lastSnapshot(t))

	hub.Announce("s2", "u2")
	assert.Equal(t, []OnlineUser{
		{UserID: "u1", SocketID: "s1"},
		{UserID: "u2", SocketID: "s2"},
	}, a.lastSnapshot(t))

	hub.Unregister("s1")
	assert.Equal(t, []OnlineUser{{UserID: "u2", SocketID: "s2"}}, b.lastSnapshot(t))
	assert.True(t, a.isClosed())
	assert.Len(t, b.named(EventGetUsers), 3)
}

func TestHub_UnregisterOnlyRemovesMatchingEntry(t *testing.T) {
	hub, _ := startHub(t)
	a, b := newFakeConn("s1"), newFakeConn("s2")
	hub.Register(a)
	hub.Register(b)
	hub.Announce("s1", "u1")
	hub.Announce("s2", "u1")

	hub.Unregister("s2")
	id, ok := hub.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "s1", id)
}

func TestHub_SendToUser(t *testing.T) {
	hub, _ := startHub(t)
	a := newFakeConn("s1")
	hub.Register(a)
	hub.Announce("s1", "u1")

	assert.True(t, hub.SendToUser("u1", Event{Name: EventNotification, Data: "hi"}))
	assert.False(t, hub.SendToUser("u2", Event{Name: EventNotification, Data: "hi"}))
	assert.Len(t, a.named(EventNotification), 1)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub, _ := startHub(t)
	slow, other := newFakeConn("s1"), newFakeConn("s2")
	hub.Register(slow)
	hub.Register(other)
	hub.Announce("s1", "u1")

	slow.mu.Lock()
	slow.full = true
	slow.mu.Unlock()

	assert.False(t, hub.SendToUser("u1", Event{Name: EventNotification}))
	assert.True(t, slow.isClosed())
	_, ok := hub.Lookup("u1")
	assert.False(t, ok)
	assert.Empty(t, other.lastSnapshot(t))
}

func TestHub_PresenceObserver(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	p := &recordingPresence{}
	hub.SetPresence(p)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()

	hub.Register(newFakeConn("s1"))
	hub.Register(newFakeConn("s2"))
	hub.Announce("s1", "u1")
	hub.Announce("s2", "u2")
	hub.Unregister("s1")
	cancel()
	<-stopped

	assert.Equal(t, []string{"+u1", "+u2", "-u1", "-u2"}, p.changes)
}

func TestHub_StopClearsRegistry(t *testing.T) {
	hub, cancel := startHub(t)
	a := newFakeConn("s1")
	hub.Register(a)
	hub.Announce("s1", "u1")

	cancel()
	require.Eventually(t, a.isClosed, timeout, tick)

	assert.Empty(t, hub.Snapshot())
	assert.False(t, hub.Register(newFakeConn("s2")))
	assert.False(t, hub.SendToUser("u1", Event{Name: EventNotification}))
}

func TestAnnouncedUser(t *testing.T) {
	assert.Equal(t, "u1", announcedUser(json.RawMessage(`"u1"`)))
	assert.Equal(t, "u2", announcedUser(json.RawMessage(`{"userId":"u2"}`)))
	assert.Equal(t, "", announcedUser(json.RawMessage(`42`)))
	assert.Equal(t, "", announcedUser(nil))
}
