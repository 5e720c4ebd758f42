package ws

import (
	"context"
	"sync"
	"time"

	"github.com/netglass-io/Camera/internal/pipeline"
)

// Emitter decouples metadata broadcasting from the capture loop. The loop
// deposits the latest result here per frame; a background goroutine pushes
// it to subscribers at a fixed cadence so UI updates never pace the
// producer.
type Emitter struct {
	hub      *Hub
	interval time.Duration

	mu   sync.Mutex
	res  pipeline.DetectionResult
	perf pipeline.PerformanceSample
	has  bool
}

// NewEmitter creates an emitter broadcasting through hub every interval.
func NewEmitter(hub *Hub, interval time.Duration) *Emitter {
	return &Emitter{hub: hub, interval: interval}
}

// PublishMetadata implements pipeline.MetadataSink. It only stores the
// latest pair and returns; superseded results are dropped, not queued.
func (e *Emitter) PublishMetadata(res pipeline.DetectionResult, perf pipeline.PerformanceSample) {
	e.mu.Lock()
	e.res = res
	e.perf = perf
	e.has = true
	e.mu.Unlock()
}

// Run broadcasts the latest metadata and performance messages until ctx is
// cancelled.
func (e *Emitter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.emit()
		}
	}
}

func (e *Emitter) emit() {
	e.mu.Lock()
	res, perf, has := e.res, e.perf, e.has
	e.mu.Unlock()

	if !has {
		return
	}
	e.hub.Broadcast(NewMetadataMessage(res, perf.FPS))
	e.hub.Broadcast(NewPerformanceMessage(perf))
}

var _ pipeline.MetadataSink = (*Emitter)(nil)
