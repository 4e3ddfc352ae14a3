// Package bridge exposes the game over a websocket: clients receive a
// snapshot after every session update and may send trading signals.
package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
)

// Backend is the game the hub talks to.
type Backend interface {
	Snapshot() session.Snapshot
	Handle(sig trader.Signal) trader.TraderEvent
}

// Config holds configuration for the hub.
type Config struct {
	// SendBuffer is the number of queued frames per client.
	SendBuffer int `mapstructure:"send_buffer" yaml:"send_buffer"`
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:   64,
		WriteTimeout: 5 * time.Second,
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub fans session updates out to websocket clients.
type Hub struct {
	cfg      Config
	backend  Backend
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	droppedFrames atomic.Int64
	wg            sync.WaitGroup
}

// NewHub creates a Hub serving backend.
func NewHub(cfg Config, backend Backend, log *zap.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		cfg:     cfg,
		backend: backend,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// OnMarketChanged implements session.Notifier.
func (h *Hub) OnMarketChanged(u session.Update) {
	data, err := json.Marshal(newSnapshot(u.Reason, u.Snapshot, u.Event))
	if err != nil {
		h.log.Error("encode snapshot", zap.Error(err))
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.enqueue(c, data)
	}
}

func (h *Hub) enqueue(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.droppedFrames.Add(1)
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()
	h.log.Info("client connected", zap.String("remote", r.RemoteAddr))

	if data, err := json.Marshal(newSnapshot(session.ReasonRefresh, h.backend.Snapshot(), nil)); err == nil {
		h.enqueue(c, data)
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("client read failed", zap.Error(err))
			}
			return
		}

		var sig trader.Signal
		if err := json.Unmarshal(data, &sig); err != nil {
			h.reply(c, ErrorMessage{Type: TypeError, Message: err.Error()})
			continue
		}
		if _, err := trader.ParseSignalKind(string(sig.Kind)); err != nil {
			h.reply(c, ErrorMessage{Type: TypeError, Message: err.Error()})
			continue
		}
		h.reply(c, newSignalResult(h.backend.Handle(sig)))
	}
}

func (h *Hub) reply(c *client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode reply", zap.Error(err))
		return
	}
	h.enqueue(c, data)
}

func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.cfg.WriteTimeout))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Warn("client write failed", zap.Error(err))
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.done)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedFrames returns the number of frames slow clients missed.
func (h *Hub) DroppedFrames() int64 {
	return h.droppedFrames.Load()
}

// Close disconnects every client and waits for their writers to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.done)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
