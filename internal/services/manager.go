package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"birdcam/internal/camera"
	"birdcam/internal/config"
	"birdcam/internal/logger"
	"birdcam/internal/repository"
	"birdcam/internal/services/detect"
	"birdcam/internal/services/ledger"
	"birdcam/internal/services/storage"
	"birdcam/internal/services/stream"

	"gocv.io/x/gocv"
)

// State describes the capture loop lifecycle.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SourceFactory opens the camera source. Injected so tests can supply a
// scripted source.
type SourceFactory func() (camera.Source, error)

// Manager owns the camera and runs the capture/inference loop: read a
// frame, publish it to the bus, and every DetectionStride-th frame run
// the detector and record qualifying results. Exactly one goroutine
// touches the camera; viewers only ever see the bus.
type Manager struct {
	cfg        *config.Config
	logger     *logger.Logger
	bus        *stream.Bus
	mux        *stream.Mux
	ledger     *ledger.Ledger
	detector   detect.Detector // nil in stream-only mode
	history    *storage.HistoryWriter
	openSource SourceFactory

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wires the pipeline together. detector and history may be nil.
func NewManager(cfg *config.Config, log *logger.Logger, bus *stream.Bus, mux *stream.Mux,
	ledg *ledger.Ledger, detector detect.Detector, history *storage.HistoryWriter,
	openSource SourceFactory) *Manager {
	return &Manager{
		cfg:        cfg,
		logger:     log,
		bus:        bus,
		mux:        mux,
		ledger:     ledg,
		detector:   detector,
		history:    history,
		openSource: openSource,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// SourceActive reports whether the capture loop is still running.
func (m *Manager) SourceActive() bool {
	return m.State() == StateRunning
}

// Ledger exposes the detection ledger for the summary endpoint.
func (m *Manager) Ledger() *ledger.Ledger { return m.ledger }

// Mux exposes the stream multiplexer for the viewer endpoints.
func (m *Manager) Mux() *stream.Mux { return m.mux }

// Start opens the camera and launches the capture loop goroutine.
// It fails with camera.ErrSourceUnavailable when the source cannot be
// opened; the loop then goes straight to Stopped and the source is
// marked down for new subscriptions.
func (m *Manager) Start(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("capture loop already started (state %s)", m.State())
	}

	source, err := m.openSource()
	if err != nil {
		m.state.Store(int32(StateStopped))
		m.mux.MarkSourceDown()
		return fmt.Errorf("failed to open camera: %w", err)
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.run(ctx, source)

	m.logger.Info("capture loop started (driver=%s stride=%d)", m.cfg.CameraDriver, m.detectionStride())
	return nil
}

// Stop signals the loop to drain and waits for it to reach Stopped.
// Safe to call when the loop already terminated on its own.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) detectionStride() int {
	if m.cfg.DetectionStride <= 0 {
		return 1
	}
	return m.cfg.DetectionStride
}

// run is the capture/inference loop. It is the sole owner of the camera
// handle and of every Mat allocated here; the bus only ever sees
// immutable encoded bytes.
func (m *Manager) run(ctx context.Context, source camera.Source) {
	defer m.wg.Done()
	defer m.state.Store(int32(StateStopped))

	frame := gocv.NewMat()
	defer frame.Close()
	defer source.Close()

	stride := m.detectionStride()
	failures := 0
	frameIndex := 0

	for {
		select {
		case <-ctx.Done():
			m.drain("stop requested")
			return
		default:
		}

		if err := source.Read(&frame); err != nil {
			if errors.Is(err, camera.ErrEndOfStream) {
				m.logger.Info("capture: end of stream")
				m.mux.MarkSourceDown()
				m.drain("end of stream")
				return
			}

			failures++
			if failures > m.cfg.CaptureRetries {
				m.logger.Error("capture: retry budget exhausted after %d failures: %v", failures, err)
				m.mux.MarkSourceDown()
				m.drain("source unavailable")
				return
			}
			m.logger.Warning("capture: read failed (attempt %d/%d): %v", failures, m.cfg.CaptureRetries, err)
			if !m.backoff(ctx, failures) {
				m.drain("stop requested during retry")
				return
			}
			continue
		}
		failures = 0

		camera.ScaleToWidth(&frame, m.cfg.FrameWidth)
		frameIndex++

		if m.detector != nil && frameIndex%stride == 0 {
			m.detectCycle(&frame)
		}

		m.publish(&frame)
	}
}

// detectCycle runs one inference pass, filters the output, annotates the
// frame and records qualifying detections. Inference failures are logged
// and treated as an empty result; they never stop the loop.
func (m *Manager) detectCycle(frame *gocv.Mat) {
	raw, err := m.detector.Detect(*frame)
	if err != nil {
		m.logger.Warning("inference: %v", err)
		return
	}

	detections := detect.Filter(raw, m.cfg.Labels, m.cfg.MinConfidence)
	if len(detections) == 0 {
		return
	}

	if err := detect.Annotate(frame, detections); err != nil {
		m.logger.Warning("annotate: %v", err)
	}

	now := time.Now()
	entries := make([]ledger.Entry, len(detections))
	events := make([]repository.Event, len(detections))
	for i, det := range detections {
		entries[i] = ledger.Entry{Label: det.Label, Confidence: det.Confidence, Timestamp: now}
		events[i] = repository.Event{Label: det.Label, Confidence: det.Confidence, DetectedAt: now}
	}

	m.ledger.Record(entries, now)
	if m.history != nil {
		m.history.Enqueue(events)
	}
}

// publish JPEG-encodes the frame and swaps it into the bus. Encoding
// happens here, once, so every viewer shares the same bytes.
func (m *Manager) publish(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		m.logger.Warning("encode: %v", err)
		return
	}
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	buf.Close()

	m.bus.Publish(data, time.Now())
}

// backoff sleeps between capture retries, scaling linearly with the
// failure streak. Returns false if the context was cancelled meanwhile.
func (m *Manager) backoff(ctx context.Context, failures int) bool {
	delay := time.Duration(m.cfg.CaptureRetryDelay*failures) * time.Millisecond
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func (m *Manager) drain(reason string) {
	m.state.Store(int32(StateDraining))
	m.logger.Info("capture loop draining: %s", reason)
}
