package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// sensorSource reads the Raspberry Pi camera module through a libcamera
// GStreamer pipeline. Requires OpenCV built with GStreamer support.
type sensorSource struct {
	capture *gocv.VideoCapture
}

func openSensor(width, height, fps int) (Source, error) {
	pipeline := sensorPipeline(width, height, fps)
	capture, err := gocv.OpenVideoCaptureWithAPI(pipeline, gocv.VideoCaptureGstreamer)
	if err != nil {
		return nil, openFailure(pipeline, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, openFailure(pipeline, nil)
	}
	return &sensorSource{capture: capture}, nil
}

// sensorPipeline builds the libcamera capture pipeline. videoconvert hands
// OpenCV BGR frames, matching what the device driver produces.
func sensorPipeline(width, height, fps int) string {
	return fmt.Sprintf(
		"libcamerasrc ! video/x-raw,width=%d,height=%d,framerate=%d/1 ! videoconvert ! video/x-raw,format=BGR ! appsink drop=true max-buffers=1",
		width, height, fps)
}

func (s *sensorSource) Read(dst *gocv.Mat) error {
	if !s.capture.Read(dst) || dst.Empty() {
		return fmt.Errorf("%w: sensor read returned no frame", ErrCapture)
	}
	return nil
}

func (s *sensorSource) IsOpened() bool {
	return s.capture.IsOpened()
}

func (s *sensorSource) Close() error {
	return s.capture.Close()
}
