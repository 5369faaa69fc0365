package camera

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// deviceSource wraps a generic gocv.VideoCapture, covering webcams,
// video files and network streams.
type deviceSource struct {
	capture *gocv.VideoCapture
	finite  bool // file sources report ErrEndOfStream instead of ErrCapture
}

func openDevice(source, backend string) (Source, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)

	api := backendAPI(backend)
	if index, ok := parseSourceIndex(source); ok {
		capture, err = gocv.OpenVideoCaptureWithAPI(index, api)
	} else {
		capture, err = gocv.OpenVideoCaptureWithAPI(source, api)
	}
	if err != nil {
		return nil, openFailure(source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, openFailure(source, nil)
	}

	return &deviceSource{
		capture: capture,
		finite:  isRegularFile(source),
	}, nil
}

func (d *deviceSource) Read(dst *gocv.Mat) error {
	if !d.capture.Read(dst) || dst.Empty() {
		if d.finite {
			return ErrEndOfStream
		}
		return fmt.Errorf("%w: read returned no frame", ErrCapture)
	}
	return nil
}

func (d *deviceSource) IsOpened() bool {
	return d.capture.IsOpened()
}

func (d *deviceSource) Close() error {
	return d.capture.Close()
}

func isRegularFile(source string) bool {
	info, err := os.Stat(source)
	return err == nil && info.Mode().IsRegular()
}
