package gateway

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/events"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     90 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// ConnectionManager owns the process-wide connection table: every live
// WebSocket, keyed by player once the connection has identified itself.
// A reconnecting player evicts their previous connection.
type ConnectionManager struct {
	mu       sync.RWMutex
	byPlayer map[string]*Connection

	upgrader websocket.Upgrader
	config   ConnectionConfig
	dispatch func(c *Connection, raw []byte)
	onClose  func(playerID string)
}

// Connection is one player's bidirectional event stream. It implements
// events.Sink: sends marshal the event envelope and push it onto the write
// pump's buffer, and become silent no-ops once the connection is invalidated.
type Connection struct {
	ID       string
	playerID atomic.Value // string, set once bound
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	closed   atomic.Bool
	manager  *ConnectionManager

	ConnectedAt time.Time
}

// NewConnectionManager creates a connection manager. dispatch receives every
// inbound frame; onClose fires after a bound connection leaves the table.
func NewConnectionManager(config ConnectionConfig, dispatch func(c *Connection, raw []byte), onClose func(playerID string)) *ConnectionManager {
	return &ConnectionManager{
		byPlayer: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		dispatch: dispatch,
		onClose:  onClose,
	}
}

// Upgrade turns an HTTP request into a managed WebSocket connection and
// starts its pumps. The connection is not yet in the player table; it joins
// on Bind once its identity is known.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		ID:          uuid.New().String(),
		conn:        ws,
		send:        make(chan []byte, 256),
		done:        make(chan struct{}),
		manager:     cm,
		ConnectedAt: time.Now(),
	}

	go c.writePump()
	go c.readPump()

	log.Info().Str("connection_id", c.ID).Msg("connection established")
	return c, nil
}

// Bind associates a connection with a player. If the player already had a
// connection, the old one is invalidated and closed: the second connection
// wins, and sends on the first handle become no-ops.
func (cm *ConnectionManager) Bind(playerID string, c *Connection) {
	c.playerID.Store(playerID)

	cm.mu.Lock()
	prev := cm.byPlayer[playerID]
	cm.byPlayer[playerID] = c
	cm.mu.Unlock()

	if prev != nil && prev != c {
		log.Info().
			Str("player_id", playerID).
			Str("old_connection_id", prev.ID).
			Str("new_connection_id", c.ID).
			Msg("replacing existing connection for player")
		prev.invalidate()
	}
}

// Count returns the number of bound connections
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.byPlayer)
}

// remove drops a connection from the table if it is still the current one
// for its player, then reports the disconnect upstream.
func (cm *ConnectionManager) remove(c *Connection) {
	playerID, _ := c.playerID.Load().(string)
	if playerID == "" {
		return
	}

	cm.mu.Lock()
	current := cm.byPlayer[playerID] == c
	if current {
		delete(cm.byPlayer, playerID)
	}
	cm.mu.Unlock()

	if current {
		log.Info().
			Str("connection_id", c.ID).
			Str("player_id", playerID).
			Msg("connection unregistered")
		cm.onClose(playerID)
	}
}

// PlayerID returns the bound player, or "" before user-online
func (c *Connection) PlayerID() string {
	id, _ := c.playerID.Load().(string)
	return id
}

// Send implements events.Sink. Sends to a closed or evicted connection are
// dropped silently; a full buffer invalidates the connection, which the
// presence registry reconciles separately. The send buffer is never closed:
// callers race freely against invalidation, and a frame buffered after
// shutdown is simply never drained.
func (c *Connection) Send(event string, data any) {
	if c.closed.Load() {
		return
	}
	raw, err := events.Marshal(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal outbound event")
		return
	}
	select {
	case c.send <- raw:
	case <-c.done:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("event", event).
			Msg("send buffer full, closing connection")
		c.invalidate()
	}
}

// invalidate marks the connection dead and signals the write pump to tear
// down the socket. Safe to call multiple times, from any goroutine.
func (c *Connection) invalidate() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
	}
}

// writePump drains the send buffer onto the socket and keeps the ping
// cadence going.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("write failed")
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("ping failed")
				return
			}
		}
	}
}

// readPump feeds inbound frames into the dispatcher until the socket dies
func (c *Connection) readPump() {
	defer func() {
		c.invalidate()
		c.manager.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.ID).Msg("unexpected close")
			}
			return
		}
		c.manager.dispatch(c, message)
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
