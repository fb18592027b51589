package infra

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/lessonrelay/internal/domain"
	"go.uber.org/zap"
)

var (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingInterval = pongWait * 9 / 10
)

// WebsocketEnvelope frame pushed to connected clients
type WebsocketEnvelope struct {
	Type    string                  `json:"type"`
	Message *domain.OutboundMessage `json:"message"`
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func (wc *wsConn) writeJSON(v interface{}) error {
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.conn.WriteJSON(v)
}

func (wc *wsConn) ping() error {
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	return wc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (wc *wsConn) close() {
	wc.once.Do(func() {
		close(wc.done)
		wc.conn.Close()
	})
}

// Websocket keeps one push connection per user and delivers outbound messages over it
type Websocket struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	mu       sync.RWMutex
	conns    map[string]*wsConn
}

var _ domain.Messenger = &Websocket{}

// NewWebsocket .
func NewWebsocket(logger *zap.Logger) *Websocket {
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
		logger: logger,
		conns:  make(map[string]*wsConn),
	}
}

// WithHeartbeat upgrade the request into a push connection for the user resolved by identify,
// the handler blocks until the client goes away
func (ws *Websocket) WithHeartbeat(identify func(echo.Context) (string, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := identify(c)
		if err != nil {
			return c.NoContent(http.StatusUnauthorized)
		}
		conn, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			ws.logger.Debug("websocket upgrade failed", zap.Error(err))
			return nil
		}

		wc := &wsConn{conn: conn, done: make(chan struct{})}
		ws.register(userID, wc)
		defer ws.unregister(userID, wc)

		go heartbeatRoutine(wc)
		readRoutine(wc)
		return nil
	}
}

func (ws *Websocket) register(userID string, wc *wsConn) {
	ws.mu.Lock()
	prev := ws.conns[userID]
	ws.conns[userID] = wc
	ws.mu.Unlock()
	if prev != nil {
		prev.close()
	}
	ws.logger.Debug("websocket connected", zap.String("user.id", userID))
}

func (ws *Websocket) unregister(userID string, wc *wsConn) {
	ws.mu.Lock()
	if ws.conns[userID] == wc {
		delete(ws.conns, userID)
	}
	ws.mu.Unlock()
	wc.close()
	ws.logger.Debug("websocket disconnected", zap.String("user.id", userID))
}

// Connected whether the user holds a push connection
func (ws *Websocket) Connected(userID string) bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	_, ok := ws.conns[userID]
	return ok
}

// Send implement domain.Messenger
func (ws *Websocket) Send(ctx context.Context, userID string, msg *domain.OutboundMessage) error {
	ws.mu.RLock()
	wc, ok := ws.conns[userID]
	ws.mu.RUnlock()
	if !ok {
		return domain.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := wc.writeJSON(&WebsocketEnvelope{Type: "message", Message: msg}); err != nil {
		wc.close()
		return err
	}
	return nil
}

// Close drop every connection
func (ws *Websocket) Close() {
	ws.mu.Lock()
	conns := ws.conns
	ws.conns = make(map[string]*wsConn)
	ws.mu.Unlock()
	for _, wc := range conns {
		wc.close()
	}
}

func heartbeatRoutine(wc *wsConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				wc.close()
				return
			}
		case <-wc.done:
			return
		}
	}
}

// readRoutine drains client frames so control messages get processed
func readRoutine(wc *wsConn) {
	wc.conn.SetReadDeadline(time.Now().Add(pongWait))
	wc.conn.SetPongHandler(func(string) error {
		wc.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := wc.conn.ReadMessage(); err != nil {
			return
		}
	}
}
