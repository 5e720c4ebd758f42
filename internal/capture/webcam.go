// Package capture opens the video device and adapts it to the pipeline's
// Source contract.
package capture

import (
	"context"
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/netglass-io/Camera/internal/pipeline"
)

// Webcam is a pipeline.Source backed by a V4L2 device through OpenCV.
// It is not safe for concurrent readers; the capture loop is the single
// consumer.
type Webcam struct {
	device string
	cap    *gocv.VideoCapture
	mat    gocv.Mat
}

// OpenWebcam opens the device, applies the requested resolution and frame
// rate, and verifies one read before returning. The device may negotiate
// different values than requested.
func OpenWebcam(device string, width, height, fps int) (*Webcam, error) {
	log.Printf("[Capture] Initializing camera at %s...", device)

	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", device, err)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	cap.Set(gocv.VideoCaptureFPS, float64(fps))

	w := &Webcam{
		device: device,
		cap:    cap,
		mat:    gocv.NewMat(),
	}

	// Verify the camera actually delivers frames before serving traffic.
	if ok := cap.Read(&w.mat); !ok || w.mat.Empty() {
		w.Close()
		return nil, fmt.Errorf("camera %s opened but failed to read a frame", device)
	}

	log.Printf("[Capture] Camera initialized: %dx%d @ %d fps requested", width, height, fps)
	return w, nil
}

// Read pulls one frame and returns it JPEG-encoded. A failed device read
// is returned as an error; retry policy belongs to the caller.
func (w *Webcam) Read(ctx context.Context) (pipeline.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.RawFrame{}, err
	}

	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return pipeline.RawFrame{}, fmt.Errorf("read from %s: no frame", w.device)
	}

	buf, err := gocv.IMEncode(".jpg", w.mat)
	if err != nil {
		return pipeline.RawFrame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close; the frame escapes the loop.
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	return pipeline.RawFrame{
		Data:      data,
		Width:     w.mat.Cols(),
		Height:    w.mat.Rows(),
		Timestamp: time.Now(),
	}, nil
}

// Close releases the device and capture buffers.
func (w *Webcam) Close() error {
	w.mat.Close()
	if err := w.cap.Close(); err != nil {
		return fmt.Errorf("release camera %s: %w", w.device, err)
	}
	log.Printf("[Capture] Camera released")
	return nil
}

var _ pipeline.Source = (*Webcam)(nil)
