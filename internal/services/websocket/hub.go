// Package websocket provides the live-view hub: a second stream
// transport beside MJPEG, pushing base64 frames to browser clients.
package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"birdcam/internal/logger"
	"birdcam/internal/services/stream"

	"github.com/gorilla/websocket"
)

// framePayload is the JSON message sent to every connected client.
type framePayload struct {
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
	Image     string `json:"image"` // base64 JPEG
}

// HubService fans frames out to websocket viewers. It holds its own
// session on the multiplexer and pulls frames at the stream rate, so a
// pile-up of websocket clients can never back-pressure the capture loop.
type HubService struct {
	logger       *logger.Logger
	writeTimeout time.Duration

	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	mutex   sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewHubService creates an empty hub.
func NewHubService(log *logger.Logger, writeTimeout time.Duration) *HubService {
	return &HubService{
		logger:       log,
		writeTimeout: writeTimeout,
		register:     make(chan *websocket.Conn),
		unregister:   make(chan *websocket.Conn),
		clients:      make(map[*websocket.Conn]bool),
	}
}

// Run services registrations and pushes frames from the multiplexer at
// the given rate until ctx is cancelled. Call in its own goroutine.
func (h *HubService) Run(ctx context.Context, mux *stream.Mux, fps int) {
	if fps <= 0 {
		fps = 15
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	session, err := mux.Subscribe()
	if err != nil {
		h.logger.Warning("websocket hub: %v", err)
	}
	defer mux.Unsubscribe(session)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("websocket viewer connected, total: %d", total)

		case client := <-h.unregister:
			h.drop(client)

		case <-ticker.C:
			if session == nil || h.ClientCount() == 0 {
				continue
			}
			frame, ok := mux.Next(session)
			if !ok {
				continue
			}
			h.broadcast(frame)
		}
	}
}

// Register adds a client connection to the hub.
func (h *HubService) Register(client *websocket.Conn) {
	h.register <- client
}

// Unregister removes a client connection and closes it.
func (h *HubService) Unregister(client *websocket.Conn) {
	h.unregister <- client
}

// ClientCount returns the number of connected clients.
func (h *HubService) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// broadcast writes one frame to every client. Writes are bounded by the
// write timeout; a client that cannot keep up is dropped, not waited on.
func (h *HubService) broadcast(frame stream.Frame) {
	message, err := json.Marshal(framePayload{
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp.Unix(),
		Image:     base64.StdEncoding.EncodeToString(frame.Data),
	})
	if err != nil {
		h.logger.Error("websocket payload: %v", err)
		return
	}

	h.mutex.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		conns = append(conns, client)
	}
	h.mutex.RUnlock()

	for _, client := range conns {
		client.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warning("websocket viewer dropped: %v", err)
			h.drop(client)
		}
	}
}

func (h *HubService) drop(client *websocket.Conn) {
	h.mutex.Lock()
	_, present := h.clients[client]
	if present {
		delete(h.clients, client)
		client.Close()
	}
	total := len(h.clients)
	h.mutex.Unlock()
	if present {
		h.logger.Info("websocket viewer disconnected, total: %d", total)
	}
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}
