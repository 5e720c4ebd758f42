// Package stream serves the image channel: an MJPEG multipart stream plus
// a single-frame snapshot endpoint, both pulled from the frame distributor.
package stream

import (
	"fmt"
	"log"
	"net/http"

	"github.com/netglass-io/Camera/internal/pipeline"
)

// MJPEGHandler streams frames as multipart/x-mixed-replace. Each request
// is an independent consumer advancing at its own pace: it pulls the next
// newer frame from the distributor, so a slow client skips frames instead
// of building a backlog.
type MJPEGHandler struct {
	dist *pipeline.Distributor
}

// NewMJPEGHandler creates the /video endpoint handler.
func NewMJPEGHandler(dist *pipeline.Distributor) *MJPEGHandler {
	return &MJPEGHandler{dist: dist}
}

// ServeHTTP streams frames until the client disconnects.
func (h *MJPEGHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	// Push the headers out before waiting on a frame so a client that
	// connects ahead of the first publish still sees the stream open.
	flusher.Flush()

	log.Printf("[Stream] Client connected from %s", r.RemoteAddr)
	defer log.Printf("[Stream] Client disconnected from %s", r.RemoteAddr)

	// The request context detaches the consumer on disconnect; there is
	// no registration on the distributor to leak.
	var last uint64
	for {
		frame, err := h.dist.Next(r.Context(), last)
		if err != nil {
			return
		}
		last = frame.Seq

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame.Data)); err != nil {
			return
		}
		if _, err := w.Write(frame.Data); err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}

// FrameHandler serves the single most recent frame as one JPEG.
type FrameHandler struct {
	dist *pipeline.Distributor
}

// NewFrameHandler creates the /frame endpoint handler.
func NewFrameHandler(dist *pipeline.Distributor) *FrameHandler {
	return &FrameHandler{dist: dist}
}

// ServeHTTP writes the latest frame, or 503 before the first publish.
func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frame := h.dist.Latest()
	if frame == nil {
		http.Error(w, "no frame available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(frame.Data)))
	w.Write(frame.Data)
}
