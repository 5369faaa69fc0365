package camera

import (
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

func TestParseSourceIndex(t *testing.T) {
	tests := []struct {
		source string
		index  int
		ok     bool
	}{
		{"0", 0, true},
		{"2", 2, true},
		{"-1", 0, false},
		{"/dev/video0", 0, false},
		{"rtsp://cam.local/stream", 0, false},
		{"clip.mp4", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		index, ok := parseSourceIndex(tt.source)
		if index != tt.index || ok != tt.ok {
			t.Errorf("parseSourceIndex(%q) = (%d, %v), want (%d, %v)",
				tt.source, index, ok, tt.index, tt.ok)
		}
	}
}

func TestBackendAPI(t *testing.T) {
	tests := []struct {
		backend string
		api     gocv.VideoCaptureAPI
	}{
		{"v4l2", gocv.VideoCaptureV4L2},
		{"gstreamer", gocv.VideoCaptureGstreamer},
		{"", gocv.VideoCaptureAny},
		{"unknown", gocv.VideoCaptureAny},
	}

	for _, tt := range tests {
		if api := backendAPI(tt.backend); api != tt.api {
			t.Errorf("backendAPI(%q) = %v, want %v", tt.backend, api, tt.api)
		}
	}
}

func TestSensorPipeline(t *testing.T) {
	pipeline := sensorPipeline(1280, 720, 30)

	for _, want := range []string{
		"libcamerasrc",
		"width=1280",
		"height=720",
		"framerate=30/1",
		"format=BGR",
		"appsink",
	} {
		if !strings.Contains(pipeline, want) {
			t.Errorf("pipeline missing %q: %s", want, pipeline)
		}
	}
}
