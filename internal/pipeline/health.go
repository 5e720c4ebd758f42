package pipeline

import (
	"sync"
	"time"
)

// fpsWindow is the number of recent samples in the moving average.
const fpsWindow = 30

// Health derives liveness signals from distribution activity. It owns no
// control logic: staleness is advisory and never stops the pipeline.
type Health struct {
	staleAfter time.Duration

	mu              sync.Mutex
	samples         []float64
	idx             int
	filled          bool
	lastPublish     time.Time
	framesPublished uint64
	captureFailures uint64

	now func() time.Time
}

// NewHealth returns a monitor that reports stale after the given duration
// without a published frame.
func NewHealth(staleAfter time.Duration) *Health {
	return &Health{
		staleAfter: staleAfter,
		samples:    make([]float64, fpsWindow),
		now:        time.Now,
	}
}

// ObservePublish records one published frame and its performance sample.
func (h *Health) ObservePublish(sample PerformanceSample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.idx] = sample.FPS
	h.idx = (h.idx + 1) % len(h.samples)
	if h.idx == 0 {
		h.filled = true
	}
	h.framesPublished++
	h.lastPublish = h.now()
}

// ObserveCaptureFailure records one failed device read.
func (h *Health) ObserveCaptureFailure() {
	h.mu.Lock()
	h.captureFailures++
	h.mu.Unlock()
}

// FPS returns the moving average over the recent sample window.
func (h *Health) FPS() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.idx
	if h.filled {
		n = len(h.samples)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += h.samples[i]
	}
	return sum / float64(n)
}

// Stale reports whether no frame has been published for longer than the
// configured threshold. Before the first publish it reports false so that
// startup is not flagged.
func (h *Health) Stale() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lastPublish.IsZero() {
		return false
	}
	return h.now().Sub(h.lastPublish) > h.staleAfter
}

// FramesPublished returns the total number of published frames.
func (h *Health) FramesPublished() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.framesPublished
}

// CaptureFailures returns the total number of failed device reads.
func (h *Health) CaptureFailures() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.captureFailures
}
