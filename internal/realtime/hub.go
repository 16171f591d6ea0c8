// Package realtime keeps track of which users are connected over websocket
// and routes events to them.
//
// The Hub owns all registry state on a single goroutine. Every exported
// method submits a command to that goroutine and, where it has a result,
// waits for it, so registry mutations are serialized without locks.
package realtime

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/emilythestrangee/stackit/backend/internal/metrics"
)

// Event names exchanged with clients.
const (
	EventAddUser      = "addUser"
	EventGetUsers     = "getUsers"
	EventNotification = "getNotification"
	EventError        = "error"
)

// Event is the frame format in both directions: {"event": ..., "data": ...}.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// OnlineUser is one registry entry as broadcast in getUsers.
type OnlineUser struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId"`
}

// Conn is a live connection the hub can push to. Send must not block; it
// reports false when the connection cannot take the event.
type Conn interface {
	ID() string
	Send(ev Event) bool
	Close()
}

// Presence is told when a user enters or leaves this hub's registry. It is
// called on the hub goroutine and must not block.
type Presence interface {
	UserOnline(userID string)
	UserOffline(userID string)
}

type state struct {
	conns map[string]Conn
	// users maps user id to the connection id that announced it; order
	// keeps announcement order for snapshots.
	users map[string]string
	order []string
}

type Hub struct {
	cmds     chan func(*state)
	done     chan struct{}
	log      zerolog.Logger
	presence Presence
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		cmds: make(chan func(*state)),
		done: make(chan struct{}),
		log:  log.With().Str("component", "realtime").Logger(),
	}
}

// SetPresence installs a presence observer. It must be called before Run.
func (h *Hub) SetPresence(p Presence) {
	h.presence = p
}

// Run serves commands until ctx ends, then closes every connection and
// clears the registry.
func (h *Hub) Run(ctx context.Context) error {
	st := &state{conns: map[string]Conn{}, users: map[string]string{}}
	h.log.Info().Msg("connection registry started")
	for {
		select {
		case cmd := <-h.cmds:
			cmd(st)
		case <-ctx.Done():
			for _, c := range st.conns {
				c.Close()
			}
			if h.presence != nil {
				for _, uid := range st.order {
					h.presence.UserOffline(uid)
				}
			}
			st.conns, st.users, st.order = nil, nil, nil
			metrics.RealtimeConnections.Set(0)
			metrics.RealtimeUsers.Set(0)
			close(h.done)
			h.log.Info().Msg("connection registry cleared")
			return nil
		}
	}
}

// do runs cmd on the hub goroutine. It reports false if the hub has stopped.
func (h *Hub) do(cmd func(*state)) bool {
	select {
	case h.cmds <- cmd:
		return true
	case <-h.done:
		return false
	}
}

// call runs fn on the hub goroutine and waits for its result.
func call[T any](h *Hub, fn func(*state) T) (T, bool) {
	result := make(chan T, 1)
	if !h.do(func(st *state) { result <- fn(st) }) {
		var zero T
		return zero, false
	}
	return <-result, true
}

// Register adds a connection that has not announced a user yet.
func (h *Hub) Register(c Conn) bool {
	_, ok := call(h, func(st *state) struct{} {
		st.conns[c.ID()] = c
		metrics.RealtimeConnections.Set(float64(len(st.conns)))
		return struct{}{}
	})
	if !ok {
		c.Close()
	}
	return ok
}

// Unregister removes the connection and, if it had announced a user, that
// user's entry. Entries announced by other connections are left alone.
func (h *Hub) Unregister(connID string) {
	call(h, func(st *state) struct{} {
		h.drop(st, connID)
		return struct{}{}
	})
}

// Announce binds userID to the connection. The first announcement for a
// user wins; later ones, from any connection, are ignored and return false.
func (h *Hub) Announce(connID, userID string) bool {
	added, _ := call(h, func(st *state) bool {
		if _, ok := st.conns[connID]; !ok {
			return false
		}
		if _, ok := st.users[userID]; ok {
			return false
		}
		st.users[userID] = connID
		st.order = append(st.order, userID)
		metrics.RealtimeUsers.Set(float64(len(st.users)))
		if h.presence != nil {
			h.presence.UserOnline(userID)
		}
		h.log.Debug().Str("user", userID).Str("conn", connID).Msg("user online")
		h.broadcastSnapshot(st)
		return true
	})
	return added
}

// Lookup returns the connection id registered for userID.
func (h *Hub) Lookup(userID string) (string, bool) {
	type found struct {
		id string
		ok bool
	}
	res, _ := call(h, func(st *state) found {
		id, ok := st.users[userID]
		return found{id, ok}
	})
	return res.id, res.ok
}

// SendToUser pushes ev to userID's connection and reports whether it was
// queued. A connection that cannot accept the event is dropped.
func (h *Hub) SendToUser(userID string, ev Event) bool {
	sent, _ := call(h, func(st *state) bool {
		connID, ok := st.users[userID]
		if !ok {
			return false
		}
		if st.conns[connID].Send(ev) {
			return true
		}
		h.drop(st, connID)
		return false
	})
	return sent
}

// Broadcast pushes ev to every connection.
func (h *Hub) Broadcast(ev Event) {
	call(h, func(st *state) struct{} {
		h.broadcast(st, ev)
		return struct{}{}
	})
}

// Snapshot returns the registry entries in announcement order.
func (h *Hub) Snapshot() []OnlineUser {
	users, ok := call(h, snapshot)
	if !ok {
		return []OnlineUser{}
	}
	return users
}

func snapshot(st *state) []OnlineUser {
	out := make([]OnlineUser, 0, len(st.order))
	for _, uid := range st.order {
		out = append(out, OnlineUser{UserID: uid, SocketID: st.users[uid]})
	}
	return out
}

func (h *Hub) broadcastSnapshot(st *state) {
	h.broadcast(st, Event{Name: EventGetUsers, Data: snapshot(st)})
}

// broadcast sends ev to all connections. Connections that fail are dropped,
// which may itself trigger a fresh snapshot broadcast.
func (h *Hub) broadcast(st *state, ev Event) {
	var failed []string
	for id, c := range st.conns {
		if !c.Send(ev) {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		h.drop(st, id)
	}
}

func (h *Hub) drop(st *state, connID string) {
	c, ok := st.conns[connID]
	if !ok {
		return
	}
	delete(st.conns, connID)
	c.Close()
	metrics.RealtimeConnections.Set(float64(len(st.conns)))

	var removed string
	for uid, cid := range st.users {
		if cid == connID {
			removed = uid
			break
		}
	}
	if removed == "" {
		return
	}
	delete(st.users, removed)
	for i, uid := range st.order {
		if uid == removed {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	metrics.RealtimeUsers.Set(float64(len(st.users)))
	if h.presence != nil {
		h.presence.UserOffline(removed)
	}
	h.log.Debug().Str("user", removed).Str("conn", connID).Msg("user offline")
	h.broadcastSnapshot(st)
}
