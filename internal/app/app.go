package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birdcam/internal/camera"
	"birdcam/internal/config"
	"birdcam/internal/logger"
	"birdcam/internal/repository"
	"birdcam/internal/repository/sqlite"
	"birdcam/internal/routes"
	"birdcam/internal/services"
	"birdcam/internal/services/detect"
	"birdcam/internal/services/ledger"
	"birdcam/internal/services/storage"
	"birdcam/internal/services/stream"
	hub "birdcam/internal/services/websocket"
)

// historyFlushSeconds is the batching interval of the event writer.
const historyFlushSeconds = 30

// App owns the whole process: configuration, pipeline, persistence and
// the HTTP server.
type App struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *sqlite.DB
	eventRepo repository.EventRepository
	history   *storage.HistoryWriter
	detector  detect.Detector
	manager   *services.Manager
	hub       *hub.HubService
}

// New builds the application from the environment. Detection and history
// degrade gracefully: a missing model or database leaves the live stream
// running in stream-only mode.
func New() (*App, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.LogDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	var detector detect.Detector
	if cfg.DetectionEnabled() {
		dnn, err := detect.NewDNNDetector(cfg.ModelPath, cfg.ModelConfig)
		if err != nil {
			log.Warning("detection disabled: %v", err)
		} else {
			detector = dnn
			log.Info("detection model loaded: %s", cfg.ModelPath)
		}
	} else {
		log.Info("detection disabled by configuration (stream-only mode)")
	}

	app := &App{cfg: cfg, logger: log}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Warning("history disabled: %v", err)
	} else {
		app.db = db
		app.eventRepo = sqlite.NewEventRepository(db)
		app.history = storage.NewHistoryWriter(app.eventRepo, log)
	}

	bus := stream.NewBus()
	mux := stream.NewMux(bus)
	app.detector = detector
	app.manager = services.NewManager(cfg, log, bus, mux, ledger.New(cfg.LedgerCapacity),
		detector, app.history, func() (camera.Source, error) { return camera.Open(cfg) })
	app.hub = hub.NewHubService(log, time.Duration(cfg.ViewerWriteTimeout)*time.Second)

	return app, nil
}

// Run starts the pipeline and serves HTTP until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.history != nil {
		go a.history.Run(historyFlushSeconds)
	}
	go a.hub.Run(ctx, a.manager.Mux(), a.cfg.StreamFPS)

	// A camera that cannot be opened is fatal for the capture session but
	// not for the server: the APIs keep serving last-known data and new
	// stream subscriptions fail fast.
	if err := a.manager.Start(ctx); err != nil {
		a.logger.Error("capture session failed to start: %v", err)
	}

	router := routes.Setup(a.manager, a.hub, a.eventRepo, a.cfg, a.logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Port),
		Handler: router,
		// Stream handlers watch their request context; deriving it from
		// ctx lets shutdown interrupt long-lived MJPEG responses.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warning("http shutdown: %v", err)
			server.Close()
		}

		a.manager.Stop()
		if a.history != nil {
			a.history.Stop()
		}
		if a.detector != nil {
			a.detector.Close()
		}
		if a.db != nil {
			a.db.Close()
		}
	}()

	a.logger.Info("birdcam server listening on http://localhost:%d", a.cfg.Port)
	a.logger.Info("video source: %s (driver=%s)", a.cfg.VideoSource, a.cfg.CameraDriver)
	a.logger.Info("tracking labels: %s", a.cfg.LabelsDisplay())

	err := server.ListenAndServe()
	<-shutdownDone
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
