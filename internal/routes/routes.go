package routes

import (
	"net/http"
	"path/filepath"
	"time"

	"birdcam/internal/config"
	"birdcam/internal/handlers"
	"birdcam/internal/logger"
	"birdcam/internal/repository"
	"birdcam/internal/services"
	hub "birdcam/internal/services/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Setup registers all HTTP routes: the dashboard, the live stream
// endpoints and the JSON APIs consumed by the polling dashboard script.
func Setup(manager *services.Manager, hubService *hub.HubService,
	eventRepo repository.EventRepository, cfg *config.Config, log *logger.Logger) http.Handler {

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// Stream endpoints
	r.Get("/video_feed", handlers.VideoFeedHandler(manager.Mux(), cfg, log))
	r.Get("/api/ws", handlers.ViewWebsocketHandler(hubService, manager.Mux(), log))

	// JSON APIs
	r.Get("/api/detections", handlers.DetectionsHandler(manager, log))
	r.Get("/api/history", handlers.HistoryHandler(eventRepo, log))
	r.Get("/healthz", handlers.HealthzHandler(manager, cfg, log))

	// Dashboard
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, filepath.Join("static", "index.html"))
	})

	return r
}

// requestLogger logs completed requests. Long-lived stream connections
// are logged by their handlers instead, so they are skipped here.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/video_feed" || r.URL.Path == "/api/ws" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
