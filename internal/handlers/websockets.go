package handlers

import (
	"net/http"
	"time"

	"birdcam/internal/logger"
	"birdcam/internal/services/stream"
	hub "birdcam/internal/services/websocket"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler upgrades a viewer connection and parks it on the
// hub until the client goes away. Fails fast once the source is down.
func ViewWebsocketHandler(h *hub.HubService, mux *stream.Mux, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mux.SourceDown() {
			http.Error(w, "Video source unavailable", http.StatusServiceUnavailable)
			return
		}

		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warning("websocket upgrade error: %v", err)
			return
		}

		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		h.Register(connection)
		defer h.Unregister(connection)

		// Viewers only send pings; the read loop exists to detect disconnect.
		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				return
			}
		}
	}
}
