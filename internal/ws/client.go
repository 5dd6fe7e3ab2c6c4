package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/report"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are policed by CORS and the optional token
	},
}

// Client represents a single WebSocket connection watching one business day
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	day    string
	send   chan []byte
	logger logrus.FieldLogger
}

// ReadPump only detects disconnects; dashboards never send messages.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Warn("websocket closed unexpectedly")
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// DayRefresher brings a day's summary up to date in the hub.
// Satisfied by *Poller; narrow interface for testability.
type DayRefresher interface {
	Refresh(ctx context.Context, day string)
}

// LiveHandler upgrades GET /ws/live?date=YYYY-MM-DD requests.
type LiveHandler struct {
	hub    *Hub
	pusher DayRefresher
	loc    *time.Location
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewLiveHandler creates a LiveHandler. pusher may be nil, in which case new
// clients get the day's kept message, if any, and otherwise wait for the next poll.
func NewLiveHandler(hub *Hub, pusher DayRefresher, loc *time.Location, logger logrus.FieldLogger) *LiveHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LiveHandler{hub: hub, pusher: pusher, loc: loc, logger: logger.WithField("module", "ws"), now: time.Now}
}

// ServeHTTP validates the day, upgrades, and registers the client. Access
// control happens in the router's auth middleware.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	day, err := report.NormalizeDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	if day == "" {
		day = h.now().In(h.loc).Format(report.DateLayout)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		day:    day,
		send:   make(chan []byte, 16),
		logger: h.logger.WithField("day", day),
	}
	if !h.hub.join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	if h.pusher != nil {
		go h.pusher.Refresh(context.WithoutCancel(r.Context()), day)
	}
}
