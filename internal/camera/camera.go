// Package camera abstracts frame acquisition across capture backends.
//
// Two drivers are supported: "device" wraps a generic OpenCV capture
// (webcams via V4L2, files, network URLs) and "sensor" reaches the
// Raspberry Pi camera module through a libcamera GStreamer pipeline.
// The driver is selected once at startup from configuration.
package camera

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"birdcam/internal/config"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceUnavailable means the camera cannot be opened or sustained
	// failures exhausted the retry budget. Fatal for the capture session.
	ErrSourceUnavailable = errors.New("camera: source unavailable")

	// ErrCapture is a transient single-read failure; callers retry with backoff.
	ErrCapture = errors.New("camera: capture failed")

	// ErrEndOfStream is returned when a finite source (video file) runs out.
	ErrEndOfStream = errors.New("camera: end of stream")
)

// Source is the minimal contract the capture loop needs from a backend.
// A Source is owned by exactly one goroutine; none of its methods are
// safe for concurrent use.
type Source interface {
	// Read fills dst with the next frame. It returns ErrCapture for a
	// transient failure and ErrEndOfStream when a finite source is done.
	Read(dst *gocv.Mat) error
	IsOpened() bool
	Close() error
}

// Open instantiates the backend selected by the configuration.
func Open(cfg *config.Config) (Source, error) {
	switch cfg.CameraDriver {
	case "sensor":
		return openSensor(cfg.SensorWidth, cfg.SensorHeight, cfg.SensorFPS)
	default:
		return openDevice(cfg.VideoSource, cfg.VideoBackend)
	}
}

// parseSourceIndex interprets a numeric VIDEO_SOURCE as a device index.
func parseSourceIndex(source string) (int, bool) {
	index, err := strconv.Atoi(source)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// scaleToWidth resizes src in place to the given width, preserving aspect
// ratio. A width of 0 or a frame already at the target width is left alone.
func scaleToWidth(src *gocv.Mat, width int) {
	if width <= 0 || src.Cols() == width || src.Cols() == 0 {
		return
	}
	ratio := float64(width) / float64(src.Cols())
	height := int(float64(src.Rows()) * ratio)
	gocv.Resize(*src, src, image.Pt(width, height), 0, 0, gocv.InterpolationArea)
}

// ScaleToWidth is the exported resize-on-capture hook used by the capture loop.
func ScaleToWidth(src *gocv.Mat, width int) {
	scaleToWidth(src, width)
}

func backendAPI(backend string) gocv.VideoCaptureAPI {
	switch backend {
	case "v4l2":
		return gocv.VideoCaptureV4L2
	case "gstreamer":
		return gocv.VideoCaptureGstreamer
	default:
		return gocv.VideoCaptureAny
	}
}

func openFailure(source string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrSourceUnavailable, source, err)
	}
	return fmt.Errorf("%w: open %q", ErrSourceUnavailable, source)
}
