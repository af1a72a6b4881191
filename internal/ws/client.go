package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the maximum time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the maximum time to wait for a pong reply from the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize is the maximum inbound message size in bytes.
	maxMessageSize = 512
)

// controlMessage is the JSON envelope clients send to subscribe to or
// unsubscribe from a topic.
type controlMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Topic  string `json:"topic"`  // e.g. "order:123", "courier:45", "all"
}

// serverMessage is the envelope for every server-to-client push.
type serverMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client represents a single realtime connection.
type Client struct {
	ID            string
	UserID        string
	Authenticated bool

	conn   *websocket.Conn
	send   chan []byte
	sendMu sync.Mutex
	closed bool
	hub    *Hub
}

// NewClient creates a Client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, authenticated bool) *Client {
	return &Client{
		ID:            uuid.New().String(),
		UserID:        userID,
		Authenticated: authenticated,
		conn:          conn,
		send:          make(chan []byte, 256),
		hub:           hub,
	}
}

// ReadPump pumps control messages from the connection to the hub. It runs in
// its own goroutine per client; when it returns, the client is unregistered
// and all its subscriptions removed.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: client %s read error: %v", c.ID, err)
			}
			return
		}

		var cm controlMessage
		if err := json.Unmarshal(msg, &cm); err != nil {
			c.sendError("invalid message")
			continue
		}
		c.handleControl(cm)
	}
}

// handleControl applies one subscribe/unsubscribe request. A missing topic
// is a protocol error answered on the socket; the connection stays open.
func (c *Client) handleControl(cm controlMessage) {
	switch cm.Action {
	case "subscribe":
		if cm.Topic == "" {
			c.sendError("topic is required")
			return
		}
		c.hub.Subscribe(c, cm.Topic)
		c.sendEvent("subscribed", map[string]interface{}{
			"topic":     cm.Topic,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		c.hub.Replay(c, cm.Topic)

	case "unsubscribe":
		if cm.Topic == "" {
			c.sendError("topic is required")
			return
		}
		c.hub.Unsubscribe(c, cm.Topic)
		c.sendEvent("unsubscribed", map[string]interface{}{
			"topic":     cm.Topic,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})

	default:
		c.sendError("unknown action " + cm.Action)
	}
}

// WritePump pumps queued messages to the connection. It runs in its own
// goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendEvent queues an enveloped message without blocking. A slow or
// disconnected client misses the push and depends on replay at next
// subscribe.
func (c *Client) sendEvent(event string, data interface{}) {
	msg, err := json.Marshal(serverMessage{Event: event, Data: data})
	if err != nil {
		log.Printf("ws: failed to marshal %s event: %v", event, err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		log.Printf("ws: dropping %s for slow client %s", event, c.ID)
	}
}

// closeSend shuts the outbound queue exactly once. Sends that race with the
// close see the closed flag instead of a closed channel.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendError(message string) {
	c.sendEvent("error", map[string]string{"message": message})
}
