package detect

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"
)

// rawConfidenceFloor drops obvious noise rows from the network output
// before the configured confidence floor is applied by Filter.
const rawConfidenceFloor = 0.1

// DNNDetector runs an SSD-style network through the OpenCV DNN module.
type DNNDetector struct {
	net gocv.Net
}

// NewDNNDetector loads the frozen graph and its config. It fails when
// either file is missing or the network cannot be initialized.
func NewDNNDetector(modelPath, configPath string) (*DNNDetector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model config not found: %s", configPath)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return nil, fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("failed to set network target: %w", err)
	}

	return &DNNDetector{net: net}, nil
}

// Detect runs one forward pass and decodes the SSD output tensor
// (rows of [batch, classID, confidence, x1, y1, x2, y2] in normalized
// coordinates).
func (d *DNNDetector) Detect(frame gocv.Mat) ([]Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrInference)
	}

	blob := gocv.BlobFromImage(frame, 1.0/127.5, image.Pt(300, 300),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	if output.Empty() || output.Total() == 0 {
		return nil, fmt.Errorf("%w: network produced no output", ErrInference)
	}

	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols, frameRows := frame.Cols(), frame.Rows()
	var detections []Detection
	for i := 0; i < rows.Rows(); i++ {
		confidence := float64(rows.GetFloatAt(i, 2))
		if confidence < rawConfidenceFloor {
			continue
		}
		classID := int(rows.GetFloatAt(i, 1))
		x1 := int(rows.GetFloatAt(i, 3) * float32(cols))
		y1 := int(rows.GetFloatAt(i, 4) * float32(frameRows))
		x2 := int(rows.GetFloatAt(i, 5) * float32(cols))
		y2 := int(rows.GetFloatAt(i, 6) * float32(frameRows))

		box := image.Rect(x1, y1, x2, y2).Intersect(image.Rect(0, 0, cols, frameRows))
		detections = append(detections, Detection{
			Label:      classLabel(classID),
			Confidence: confidence,
			Box:        box,
		})
	}

	return detections, nil
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	return d.net.Close()
}

// Annotate draws detection boxes and labels onto the frame in place.
func Annotate(frame *gocv.Mat, detections []Detection) error {
	green := color.RGBA{G: 255}
	for _, det := range detections {
		if err := gocv.Rectangle(frame, det.Box, green, 2); err != nil {
			return fmt.Errorf("failed to draw box: %w", err)
		}

		label := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
		origin := image.Pt(det.Box.Min.X, det.Box.Min.Y-10)
		if origin.Y < 15 {
			origin.Y = 15
		}
		if err := gocv.PutText(frame, label, origin, gocv.FontHersheySimplex, 0.5, green, 2); err != nil {
			return fmt.Errorf("failed to draw label: %w", err)
		}
	}
	return nil
}
