package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"birdcam/internal/config"
	"birdcam/internal/logger"
	"birdcam/internal/services/stream"
)

const streamBoundary = "frame"

// VideoFeedHandler serves GET /video_feed: a long-lived multipart MJPEG
// response. Each connection gets its own multiplexer session and its own
// delivery loop on the request goroutine; a viewer whose writes stall
// past the configured timeout is dropped without affecting anyone else.
func VideoFeedHandler(mux *stream.Mux, cfg *config.Config, log *logger.Logger) http.HandlerFunc {
	writeTimeout := time.Duration(cfg.ViewerWriteTimeout) * time.Second
	fps := cfg.StreamFPS
	if fps <= 0 {
		fps = 15
	}

	return func(w http.ResponseWriter, r *http.Request) {
		session, err := mux.Subscribe()
		if err != nil {
			if errors.Is(err, stream.ErrSourceDown) {
				http.Error(w, "Video source unavailable", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer mux.Unsubscribe(session)

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		log.Info("viewer %s connected (%d active)", session.ID, mux.ViewerCount())
		defer func() {
			log.Info("viewer %s disconnected", session.ID)
		}()

		rc := http.NewResponseController(w)
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}

			frame, ok := mux.Next(session)
			if !ok {
				continue
			}

			rc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := writePart(w, frame.Data); err != nil {
				log.Warning("viewer %s write failed: %v", session.ID, err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
