package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 32
)

// Client is one websocket connection. Outbound events go through a bounded
// queue drained by a writer goroutine; a full queue makes Send fail and the
// hub drops the client.
type Client struct {
	id     string
	userID string
	ws     *websocket.Conn
	hub    *Hub
	log    zerolog.Logger

	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(ws *websocket.Conn, userID string, hub *Hub, log zerolog.Logger) *Client {
	id := models.NewID()
	return &Client{
		id:     id,
		userID: userID,
		ws:     ws,
		hub:    hub,
		log:    log.With().Str("conn", id).Str("user", userID).Logger(),
		send:   make(chan Event, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Send(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		c.log.Warn().Str("event", ev.Name).Msg("send queue full")
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Attach registers an upgraded connection authenticated as userID and
// serves it until the peer goes away. It blocks for the connection's
// lifetime.
func (h *Hub) Attach(ws *websocket.Conn, userID string) {
	c := newClient(ws, userID, h, h.log)
	if !h.Register(c) {
		_ = ws.Close()
		return
	}
	c.log.Debug().Msg("websocket connected")

	go c.writePump()
	c.readPump()
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.id)
		c.Close()
		c.log.Debug().Msg("websocket disconnected")
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		switch msg.Event {
		case EventAddUser:
			c.handleAddUser(msg.Data)
		default:
			c.log.Debug().Str("event", msg.Event).Msg("ignoring unknown event")
		}
	}
}

// handleAddUser accepts either a bare user id string or {"userId": ...}.
// Only the identity the connection authenticated with may be announced.
func (c *Client) handleAddUser(data json.RawMessage) {
	announced := announcedUser(data)
	if announced != "" && announced != c.userID {
		c.log.Warn().Str("announced", announced).Msg("announce for another user rejected")
		c.Send(Event{Name: EventError, Data: map[string]string{"error": "cannot announce another user"}})
		return
	}
	c.hub.Announce(c.id, c.userID)
}

func announcedUser(data json.RawMessage) string {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return strings.TrimSpace(obj.UserID)
	}
	return ""
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				c.log.Warn().Err(err).Msg("failed to write websocket event")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
