package handlers

import (
	"net/http"
	"sync"
	"time"

	"debt_flow_app_go/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 8
)

// Hub fans dashboard push messages out to every connected browser
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
	log     *zap.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		log:     zap.L().Named("ws"),
	}
}

// Broadcast queues msg for every client. Slow clients are dropped rather
// than blocking the sender.
func (hub *Hub) Broadcast(msg []byte) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for cl := range hub.clients {
		select {
		case cl.send <- msg:
		default:
			hub.removeLocked(cl)
		}
	}
}

// Clients is the number of connected browsers
func (hub *Hub) Clients() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients)
}

// Close disconnects everyone and refuses new clients
func (hub *Hub) Close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.closed = true
	for cl := range hub.clients {
		hub.removeLocked(cl)
	}
}

func (hub *Hub) add(cl *wsClient) bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closed {
		return false
	}
	hub.clients[cl] = struct{}{}
	return true
}

func (hub *Hub) remove(cl *wsClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.removeLocked(cl)
}

func (hub *Hub) removeLocked(cl *wsClient) {
	if _, ok := hub.clients[cl]; !ok {
		return
	}
	delete(hub.clients, cl)
	close(cl.send)
}

// DashboardSocket upgrades the request and streams refresh notices
func (h *Handler) DashboardSocket(c echo.Context) error {
	if h.Hub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "push updates disabled")
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.FromContext(c.Request().Context()).Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}

	cl := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	if !h.Hub.add(cl) {
		_ = conn.Close()
		return nil
	}
	go cl.writePump()
	cl.readPump(h.Hub)
	return nil
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.Config == nil {
		return true
	}
	for _, allowed := range h.Config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// readPump only watches for the browser going away
func (cl *wsClient) readPump(hub *Hub) {
	defer func() {
		hub.remove(cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (cl *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
