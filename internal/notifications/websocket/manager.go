package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crm-copy/portal-backend/internal/notifications"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Manager handles WebSocket connections and routes toasts to users
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID           string
	UserID       string
	Conn         *websocket.Conn
	Send         chan notifications.WebSocketMessage
	ConnectedAt  time.Time
	LastActivity time.Time
	UserAgent    string
	IPAddress    string
	mu           sync.Mutex
}

// NewManager creates a new WebSocket manager. allowedOrigin "*" accepts any origin.
func NewManager(allowedOrigin string, logger *zap.Logger) *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// Attach upgrades the request and registers the connection for userID
func (m *Manager) Attach(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:           uuid.New().String(),
		UserID:       userID,
		Conn:         conn,
		Send:         make(chan notifications.WebSocketMessage, sendBuffer),
		ConnectedAt:  now,
		LastActivity: now,
		UserAgent:    r.Header.Get("User-Agent"),
		IPAddress:    r.RemoteAddr,
	}

	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	m.logger.Debug("Connection registered",
		zap.String("connection_id", connection.ID),
		zap.String("user_id", userID),
		zap.String("user_agent", connection.UserAgent),
		zap.String("ip_address", connection.IPAddress),
	)

	connection.Send <- notifications.WebSocketMessage{
		Type:      notifications.WSMessageTypeStatus,
		Timestamp: now,
		Target:    userID,
	}

	go m.readPump(connection)
	go m.writePump(connection)

	return nil
}

// unregister removes the connection and closes its send channel exactly once
func (m *Manager) unregister(conn *Connection) {
	m.mu.Lock()
	if _, ok := m.connections[conn.ID]; ok {
		delete(m.connections, conn.ID)
		close(conn.Send)
		conn.mu.Lock()
		lastActivity := conn.LastActivity
		conn.mu.Unlock()
		m.logger.Debug("Connection unregistered",
			zap.String("connection_id", conn.ID),
			zap.String("user_id", conn.UserID),
			zap.Duration("connected_for", time.Since(conn.ConnectedAt)),
			zap.Time("last_activity", lastActivity),
		)
	}
	m.mu.Unlock()
}

// readPump drains client frames so pongs and close frames are processed
func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.touch()
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("WebSocket read failed", zap.Error(err), zap.String("connection_id", conn.ID))
			}
			return
		}
		conn.touch()
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.LastActivity = time.Now()
	c.mu.Unlock()
}

// SendToUser sends a message to every open connection of a user
func (m *Manager) SendToUser(userID string, message notifications.WebSocketMessage) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	message.Target = userID
	matched, sent := 0, 0
	for _, conn := range m.connections {
		if conn.UserID != userID {
			continue
		}
		matched++
		select {
		case conn.Send <- message:
			sent++
		default:
			// Connection buffer full, skip
		}
	}

	if matched == 0 {
		return notifications.ErrUserNotConnected
	}
	if sent == 0 {
		return fmt.Errorf("user connection buffer full")
	}
	return nil
}

// GetConnectionCount returns the number of active connections
func (m *Manager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Close closes the WebSocket manager and all connections
func (m *Manager) Close() {
	m.mu.Lock()
	for id, conn := range m.connections {
		delete(m.connections, id)
		close(conn.Send)
	}
	m.mu.Unlock()
}
