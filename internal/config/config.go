package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all process-start-time settings, resolved from environment
// variables. There is no hot-reload; restart the server to apply changes.
type Config struct {
	Port int

	VideoSource  string // device index ("0") or a file/URL source
	CameraDriver string // "device" (generic capture) or "sensor" (Pi camera module)
	VideoBackend string // "v4l2", "gstreamer" or "" for auto

	ModelPath     string // empty means detection disabled (stream-only mode)
	ModelConfig   string
	Labels        []string
	MinConfidence float64
	FrameWidth    int // optional resize width, 0 keeps native resolution

	SensorWidth  int
	SensorHeight int
	SensorFPS    int

	DetectionStride    int // run inference every Nth frame
	StreamFPS          int // target per-viewer delivery rate
	LedgerCapacity     int // bounded window of recent detections
	CaptureRetries     int // transient read failures tolerated before giving up
	CaptureRetryDelay  int // base backoff between capture retries, milliseconds
	ViewerWriteTimeout int // seconds before a stalled viewer write is abandoned

	DBPath       string
	LogDirectory string
}

// Load builds the configuration from the environment, falling back to
// defaults that match the reference deployment.
func Load() *Config {
	return &Config{
		Port:               getEnvAsInt("PORT", 8080),
		VideoSource:        getEnv("VIDEO_SOURCE", "0"),
		CameraDriver:       parseDriver(os.Getenv("CAMERA_DRIVER")),
		VideoBackend:       parseBackend(os.Getenv("VIDEO_BACKEND")),
		ModelPath:          parseModelPath(os.Getenv("MODEL_PATH")),
		ModelConfig:        getEnv("MODEL_CONFIG", filepath.Join("models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		Labels:             parseLabels(os.Getenv("LABELS")),
		MinConfidence:      getEnvAsFloat("MIN_CONFIDENCE", 0.4),
		FrameWidth:         getEnvAsInt("FRAME_WIDTH", 0),
		SensorWidth:        getEnvAsInt("SENSOR_WIDTH", 1280),
		SensorHeight:       getEnvAsInt("SENSOR_HEIGHT", 720),
		SensorFPS:          getEnvAsInt("SENSOR_FPS", 30),
		DetectionStride:    getEnvAsInt("DETECTION_STRIDE", 3),
		StreamFPS:          getEnvAsInt("STREAM_FPS", 15),
		LedgerCapacity:     getEnvAsInt("LEDGER_CAPACITY", 20),
		CaptureRetries:     getEnvAsInt("CAPTURE_RETRIES", 5),
		CaptureRetryDelay:  getEnvAsInt("CAPTURE_RETRY_DELAY", 500),
		ViewerWriteTimeout: getEnvAsInt("VIEWER_WRITE_TIMEOUT", 5),
		DBPath:             getEnv("DB_PATH", filepath.Join(".", "birdcam.db")),
		LogDirectory:       getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// DetectionEnabled reports whether a model path was configured.
func (c *Config) DetectionEnabled() bool {
	return c.ModelPath != ""
}

// LabelsDisplay formats the label allowlist for the dashboard.
func (c *Config) LabelsDisplay() string {
	titled := make([]string, 0, len(c.Labels))
	for _, label := range c.Labels {
		if label == "" {
			continue
		}
		titled = append(titled, strings.ToUpper(label[:1])+label[1:])
	}
	return strings.Join(titled, ", ")
}

func parseDriver(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sensor", "picamera", "picamera2":
		return "sensor"
	default:
		return "device"
	}
}

func parseBackend(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "v4l2":
		return "v4l2"
	case "gstreamer":
		return "gstreamer"
	default:
		return ""
	}
}

// parseModelPath resolves the MODEL_PATH variable; the sentinel values
// none/no/off/disable/disabled turn detection off entirely.
func parseModelPath(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return filepath.Join("models", "frozen_inference_graph.pb")
	}
	switch strings.ToLower(trimmed) {
	case "none", "no", "off", "disable", "disabled":
		return ""
	}
	return trimmed
}

func parseLabels(value string) []string {
	var labels []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			labels = append(labels, item)
		}
	}
	if len(labels) == 0 {
		return []string{"bird"}
	}
	return labels
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
