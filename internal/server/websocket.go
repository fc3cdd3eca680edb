package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Allow connections without origin header (e.g., CLI tools)
		if origin == "" {
			return true
		}

		allowedOrigins := []string{
			"http://localhost",
			"https://localhost",
			"http://127.0.0.1",
			"https://127.0.0.1",
			"http://[::1]",
			"https://[::1]",
		}
		for _, allowed := range allowedOrigins {
			if strings.HasPrefix(origin, allowed) {
				return true
			}
		}

		logger.WithFields(logger.Fields{
			"origin": origin,
			"remote": r.RemoteAddr,
		}).Warn("WebSocket connection rejected - invalid origin")

		return false
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ClientMessage represents messages from client to server
type ClientMessage struct {
	Type string `json:"type"` // 'ping'
}

// handleStatusWebSocket streams the status of every instance to the client
// until the client disconnects. A frame is pushed on every poll tick and
// immediately on connect.
func (s *Server) handleStatusWebSocket(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return err
	}
	defer ws.Close()

	logger.WithField("remote", c.Request().RemoteAddr).Debug("Status stream opened")

	// Drain client messages so pings are answered and closes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ClientMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.WithError(err).Debug("WebSocket read error")
				}
				return
			}
			if msg.Type == "ping" {
				ws.WriteJSON(map[string]string{"type": "pong"})
			}
		}
	}()

	ticker := time.NewTicker(constants.PollInterval)
	defer ticker.Stop()

	for {
		event, err := s.statusEvent(c)
		if err != nil {
			logger.WithError(err).Warn("Failed to build status frame")
		} else if err := ws.WriteJSON(event); err != nil {
			return nil
		}

		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
		}
	}
}

// statusEvent snapshots every instance's status
func (s *Server) statusEvent(c echo.Context) (StatusEvent, error) {
	list, err := s.reg.List(c.Request().Context())
	if err != nil {
		return StatusEvent{}, err
	}

	event := StatusEvent{Type: "status", Instances: make([]StatusResponse, 0, len(list))}
	for _, inst := range list {
		status := StatusResponse{Name: inst.Name, Status: string(inst.Status)}
		if inst.Status == cluster.StatusRunning {
			status.Uptime = s.sup.Uptime(inst.Name).Round(time.Second).String()
		}
		event.Instances = append(event.Instances, status)
	}
	return event, nil
}
