// Package progress streams training progress to websocket clients.
package progress

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	keepaliveEvery = 30 * time.Second
	writeTimeout   = 5 * time.Second
	clientBuffer   = 64
)

// Event is one progress update. Step counts generations or epochs.
type Event struct {
	Run   string  `json:"run"`
	Kind  string  `json:"kind"`
	Step  int     `json:"step"`
	Total int     `json:"total"`
	MAE   float64 `json:"mae,omitempty"`
	RMSE  float64 `json:"rmse,omitempty"`
	Done  bool    `json:"done,omitempty"`
}

// Hub fans events out to every connected client. A client that falls
// behind is disconnected so a slow reader never stalls training.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *Event
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	conn *websocket.Conn
	send chan Event
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and registers the client. New clients are
// sent the latest event straight away.
func (h *Hub) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan Event, clientBuffer), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- *h.last
	}
	h.wg.Add(2)
	h.mu.Unlock()
	h.log.Debug("progress client connected", zap.String("remote", req.RemoteAddr))
	go h.writer(c)
	go h.reader(c)
}

// Publish queues ev for every client without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &ev
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.log.Warn("dropping slow progress client", zap.String("remote", c.conn.RemoteAddr().String()))
			h.drop(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their goroutines to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		h.drop(c)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// drop must be called with h.mu held.
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	c.close()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.drop(c)
	h.mu.Unlock()
}

func (h *Hub) writer(c *client) {
	defer h.wg.Done()
	defer c.conn.Close()
	t := time.NewTicker(keepaliveEvery)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				h.log.Debug("progress write failed", zap.Error(err))
				h.remove(c)
				return
			}
		case <-t.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// reader discards client messages and notices disconnects.
func (h *Hub) reader(c *client) {
	defer h.wg.Done()
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			h.remove(c)
			return
		}
	}
}
