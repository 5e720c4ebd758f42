// Package server wires the HTTP surface: image channel, event channel,
// snapshot retrieval, and health probes.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/netglass-io/Camera/internal/pipeline"
	"github.com/netglass-io/Camera/internal/snapshot"
	"github.com/netglass-io/Camera/internal/stream"
	"github.com/netglass-io/Camera/internal/ws"
)

// Server owns the HTTP mux and its handlers.
type Server struct {
	mux    *http.ServeMux
	health *pipeline.Health
}

// New assembles the routes. snapStore may be nil when snapshot storage is
// disabled; the route is simply absent then.
func New(dist *pipeline.Distributor, hub *ws.Hub, commands *pipeline.Commands, health *pipeline.Health, snapStore *snapshot.Store) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		health: health,
	}

	s.mux.Handle("/video", stream.NewMJPEGHandler(dist))
	s.mux.Handle("/frame", stream.NewFrameHandler(dist))
	s.mux.Handle("/ws", ws.NewHandler(hub, commands))
	if snapStore != nil {
		s.mux.Handle("/snapshots", snapshot.NewHandler(snapStore))
		s.mux.Handle("/snapshots/", snapshot.NewHandler(snapStore))
	}
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/readyz", s.handleReadyz)
	s.mux.HandleFunc("/", s.handleIndex)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealthz is the liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReadyz reports readiness: at least one frame published and the
// pipeline not stale.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ready := s.health.FramesPublished() > 0 && !s.health.Stale()

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not ready"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":           status,
		"fps":              s.health.FPS(),
		"frames_published": s.health.FramesPublished(),
		"capture_failures": s.health.CaptureFailures(),
		"stale":            s.health.Stale(),
	})
}

// handleIndex serves a minimal viewer so the stream is inspectable without
// the full UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<!doctype html><title>camerad</title><img src="/video" alt="live stream">`))
}
