// Package hub maintains the set of live connections and fans table events out to them.
package hub

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/protocol"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultQueueSize bounds each client's outbound backlog.
	DefaultQueueSize = 256
	// DefaultWriteTimeout is the write deadline applied to every line.
	DefaultWriteTimeout = 10 * time.Second
)

// Client is one registered connection with its own writer goroutine.
type Client struct {
	ID        uuid.UUID
	Name      string
	Transport string

	conn    net.Conn
	send    chan string
	timeout time.Duration
	log     *logrus.Entry

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// ClientInfo is the read-only view returned by Snapshot.
type ClientInfo struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Transport  string    `json:"transport"`
	RemoteAddr string    `json:"remoteAddr"`
	Queued     int       `json:"queued"`
}

// Hub maintains the set of active clients and messages to the clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client

	queueSize    int
	writeTimeout time.Duration
	logger       *logrus.Logger
}

// New creates a hub. Non-positive sizes fall back to the defaults.
func New(logger *logrus.Logger, queueSize int, writeTimeout time.Duration) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:      make(map[uuid.UUID]*Client),
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// NewClient wraps a connection. It is not reachable by broadcasts until Register.
func (h *Hub) NewClient(id uuid.UUID, conn net.Conn, transport string) *Client {
	return &Client{
		ID:        id,
		Transport: transport,
		conn:      conn,
		send:      make(chan string, h.queueSize),
		timeout:   h.writeTimeout,
		done:      make(chan struct{}),
		log: h.logger.WithFields(logrus.Fields{
			"client_id": id,
			"transport": transport,
			"remote":    conn.RemoteAddr().String(),
		}),
	}
}

// Register adds the client and starts its writer.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	go c.writePump()
}

// Unregister removes the client and closes its queue. Lines already queued are still written.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Broadcast encodes ev once and enqueues it for every client. It never blocks.
func (h *Hub) Broadcast(ev game.GameEvent) {
	line := protocol.Encode(ev)
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(line)
	}
}

// SendTo enqueues ev for a single client, if registered.
func (h *Hub) SendTo(id uuid.UUID, ev game.GameEvent) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if ok {
		c.Send(protocol.Encode(ev))
	}
}

// Len reports the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Snapshot lists registered clients.
func (h *Hub) Snapshot() []ClientInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ClientInfo, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, ClientInfo{
			ID:         c.ID,
			Name:       c.Name,
			Transport:  c.Transport,
			RemoteAddr: c.conn.RemoteAddr().String(),
			Queued:     len(c.send),
		})
	}
	return out
}

// Send enqueues one line. A full queue means the peer has stalled, so the client is closed.
func (c *Client) Send(line string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- line:
		return true
	default:
		c.log.Warn("outbound queue full, dropping client")
		c.closeLocked()
		return false
	}
}

// Close stops accepting lines. The writer drains what is queued and then closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Closed reports whether the client no longer accepts lines.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Done is closed once the writer has exited and the connection is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// writePump is the only goroutine that writes to the connection.
func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close()
		close(c.done)
	}()

	for line := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			c.log.WithError(err).Debug("set write deadline failed")
		}
		if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
			c.log.WithError(err).Info("write failed, closing client")
			c.Close()
			return
		}
	}
}
