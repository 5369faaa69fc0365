// Package detect wraps object-detection inference behind a small
// interface and filters raw model output down to the configured labels.
package detect

import (
	"errors"
	"image"
	"strings"

	"gocv.io/x/gocv"
)

// ErrInference marks a transient failure of a single inference call.
// The capture loop logs it and treats the cycle as "no detections".
var ErrInference = errors.New("detect: inference failed")

// Detection is one classified object instance. Immutable once created.
type Detection struct {
	Label      string
	Confidence float64
	Box        image.Rectangle
}

// Detector runs object detection on a single frame. Implementations are
// not required to be safe for concurrent use; the capture loop is the
// only caller.
type Detector interface {
	// Detect returns raw detections for the frame, before label and
	// confidence filtering. Failures wrap ErrInference.
	Detect(frame gocv.Mat) ([]Detection, error)
	Close() error
}

// Filter discards detections whose label is outside the allowlist or
// whose confidence falls below the floor. Label comparison is
// case-insensitive. The input slice is not modified.
func Filter(detections []Detection, labels []string, minConfidence float64) []Detection {
	allowed := make(map[string]bool, len(labels))
	for _, label := range labels {
		allowed[strings.ToLower(label)] = true
	}

	var kept []Detection
	for _, det := range detections {
		if !allowed[strings.ToLower(det.Label)] {
			continue
		}
		if det.Confidence < minConfidence {
			continue
		}
		kept = append(kept, det)
	}
	return kept
}
