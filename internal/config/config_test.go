package config

import (
	"reflect"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.VideoSource != "0" {
		t.Errorf("expected default source 0, got %q", cfg.VideoSource)
	}
	if cfg.CameraDriver != "device" {
		t.Errorf("expected default driver device, got %q", cfg.CameraDriver)
	}
	if cfg.MinConfidence != 0.4 {
		t.Errorf("expected default confidence 0.4, got %f", cfg.MinConfidence)
	}
	if !reflect.DeepEqual(cfg.Labels, []string{"bird"}) {
		t.Errorf("expected default labels [bird], got %v", cfg.Labels)
	}
	if !cfg.DetectionEnabled() {
		t.Error("detection should be enabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CAMERA_DRIVER", "sensor")
	t.Setenv("VIDEO_BACKEND", "v4l2")
	t.Setenv("LABELS", "Bird, Cat ,dog")
	t.Setenv("MIN_CONFIDENCE", "0.6")
	t.Setenv("DETECTION_STRIDE", "5")

	cfg := Load()

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.CameraDriver != "sensor" {
		t.Errorf("expected sensor driver, got %q", cfg.CameraDriver)
	}
	if cfg.VideoBackend != "v4l2" {
		t.Errorf("expected v4l2 backend, got %q", cfg.VideoBackend)
	}
	if !reflect.DeepEqual(cfg.Labels, []string{"bird", "cat", "dog"}) {
		t.Errorf("expected [bird cat dog], got %v", cfg.Labels)
	}
	if cfg.MinConfidence != 0.6 {
		t.Errorf("expected confidence 0.6, got %f", cfg.MinConfidence)
	}
	if cfg.DetectionStride != 5 {
		t.Errorf("expected stride 5, got %d", cfg.DetectionStride)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("MIN_CONFIDENCE", "high")
	t.Setenv("CAMERA_DRIVER", "webcam3000")
	t.Setenv("VIDEO_BACKEND", "directshow")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("invalid PORT should fall back to 8080, got %d", cfg.Port)
	}
	if cfg.MinConfidence != 0.4 {
		t.Errorf("invalid MIN_CONFIDENCE should fall back to 0.4, got %f", cfg.MinConfidence)
	}
	if cfg.CameraDriver != "device" {
		t.Errorf("unknown driver should fall back to device, got %q", cfg.CameraDriver)
	}
	if cfg.VideoBackend != "" {
		t.Errorf("unknown backend should fall back to auto, got %q", cfg.VideoBackend)
	}
}

func TestModelPathSentinel(t *testing.T) {
	for _, sentinel := range []string{"none", "NO", "off", "Disable", "disabled"} {
		t.Run(sentinel, func(t *testing.T) {
			t.Setenv("MODEL_PATH", sentinel)
			cfg := Load()
			if cfg.DetectionEnabled() {
				t.Errorf("MODEL_PATH=%q should disable detection", sentinel)
			}
		})
	}

	t.Setenv("MODEL_PATH", "models/custom.pb")
	cfg := Load()
	if cfg.ModelPath != "models/custom.pb" {
		t.Errorf("explicit model path not honored: %q", cfg.ModelPath)
	}
}

func TestLabelsDisplay(t *testing.T) {
	t.Setenv("LABELS", "bird,blue jay")
	cfg := Load()
	if got := cfg.LabelsDisplay(); got != "Bird, Blue jay" {
		t.Errorf("LabelsDisplay() = %q", got)
	}
}
