package live

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/espython/website-builder/internal/dnd"
	"github.com/espython/website-builder/internal/sections"
)

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	projectID string
	drag      *dnd.Session

	mu       sync.Mutex
	snapshot *sections.Snapshot
	seen     uint64
	replies  chan Message
	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, projectID string) *client {
	return &client{
		hub:       h,
		conn:      conn,
		projectID: projectID,
		replies:   make(chan Message, defaultReplyBuffer),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// pushSnapshot keeps only the newest snapshot for the writer.
func (c *client) pushSnapshot(snap sections.Snapshot) {
	c.mu.Lock()
	if c.snapshot != nil && snap.Version < c.snapshot.Version || snap.Version < c.seen {
		c.mu.Unlock()
		return
	}
	c.snapshot = &snap
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) reply(msg Message) {
	msg.ProjectID = c.projectID
	select {
	case c.replies <- msg:
	case <-c.done:
	default:
		c.hub.logger.Warn("live: reply dropped for slow client", zap.String("project_id", c.projectID))
	}
}

func (c *client) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) readLoop() {
	c.conn.SetReadLimit(maxClientMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("live: read failed", zap.String("project_id", c.projectID), zap.Error(err))
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(Message{Type: TypeError, Error: "malformed message"})
			continue
		}
		c.handle(msg)
	}
}

func (c *client) handle(msg ClientMessage) {
	at := dnd.Point{X: msg.X, Y: msg.Y}
	switch msg.Type {
	case TypeDragStart:
		pointer, err := dnd.ParsePointer(msg.Pointer)
		if err == nil {
			err = c.drag.Start(pointer, msg.ActiveID, at)
		}
		if err != nil {
			c.reply(Message{Type: TypeError, Error: err.Error()})
			return
		}
	case TypeDragMove:
		c.drag.Move(at)
	case TypeDragOver:
		c.drag.Over(msg.OverID)
	case TypeDragHold:
		c.drag.Hold()
	case TypeCancel:
		c.drag.Cancel()
	case TypeDrop:
		result, err := c.drag.Drop()
		if err != nil {
			if !errors.Is(err, dnd.ErrNoGesture) {
				c.hub.logger.Warn("live: reorder failed", zap.String("project_id", c.projectID), zap.Error(err))
			}
			c.reply(Message{Type: TypeError, Error: err.Error(), Result: &result})
			return
		}
		c.reply(Message{Type: TypeDropped, Result: &result})
		return
	default:
		c.reply(Message{Type: TypeError, Error: "unknown message type " + msg.Type})
		return
	}
	state := c.drag.State()
	c.reply(Message{Type: TypeDrag, Drag: &state})
}

func (c *client) writeLoop() {
	pingEvery := c.hub.pongWait * 9 / 10
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	defer c.stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			c.mu.Lock()
			snap := c.snapshot
			c.snapshot = nil
			if snap != nil {
				c.seen = snap.Version
			}
			c.mu.Unlock()
			if snap == nil {
				continue
			}
			if err := c.write(sectionsMessage(c.projectID, *snap)); err != nil {
				return
			}
		case msg := <-c.replies:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) write(msg Message) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.hub.logger.Debug("live: write failed", zap.String("project_id", c.projectID), zap.Error(err))
		return err
	}
	return nil
}
