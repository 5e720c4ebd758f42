package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/netglass-io/Camera/internal/overlay"
)

// RawFrame is one unprocessed device read: a JPEG buffer plus capture
// metadata. Produced by a Source, consumed by the loop.
type RawFrame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Source wraps a video-producing device. Read blocks until the device
// yields a frame or fails; the loop owns retry policy, not the source.
type Source interface {
	Read(ctx context.Context) (RawFrame, error)
	Close() error
}

// Detection is the output of one detector pass. Annotated is the frame
// with bounding boxes drawn; detectors that only report regions leave it
// nil and the loop renders the overlay itself.
type Detection struct {
	Regions   []Region
	Annotated []byte
}

// Detector is the pluggable detection algorithm. How the sensitivity
// threshold maps onto algorithm parameters is the detector's business.
type Detector interface {
	Name() string
	Detect(ctx context.Context, image []byte, sensitivity float64) (Detection, error)
	Close() error
}

// MetadataSink receives the detection result and performance sample of
// every processed frame. Implementations must not block the caller.
type MetadataSink interface {
	PublishMetadata(res DetectionResult, perf PerformanceSample)
}

// SnapshotSink stores a retained frame as a standalone artifact. Storage
// and retrieval belong to the implementation, not the pipeline.
type SnapshotSink interface {
	Save(f *Frame) error
}

// CaptureError is the fatal form of a failed device read: the retry
// budget was exhausted and the pipeline cannot continue.
type CaptureError struct {
	Attempts int
	Err      error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// LoopConfig bounds the loop's pacing and failure policy.
type LoopConfig struct {
	// TargetFPS caps the iteration rate. The device may deliver slower;
	// the loop never reads faster than this.
	TargetFPS int
	// MaxRetries is the capture retry budget before the loop gives up.
	MaxRetries int
	// RetryBackoff is the base delay between retries; it grows linearly
	// with the attempt count.
	RetryBackoff time.Duration
}

// DefaultLoopConfig returns the failure policy used in production.
func DefaultLoopConfig(targetFPS int) LoopConfig {
	return LoopConfig{
		TargetFPS:    targetFPS,
		MaxRetries:   5,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// Loop is the single producer of the pipeline: it pulls frames from the
// source, applies detection according to the shared state, and publishes
// the result to the distributor and the metadata sink.
type Loop struct {
	cfg    LoopConfig
	src    Source
	det    Detector
	state  *State
	dist   *Distributor
	meta   MetadataSink
	health *Health
	snaps  SnapshotSink

	seq          uint64
	lastPublish  time.Time
	snapshotWant atomic.Bool
}

// NewLoop wires the loop to its collaborators. snaps may be nil when no
// snapshot storage is configured.
func NewLoop(cfg LoopConfig, src Source, det Detector, state *State, dist *Distributor, meta MetadataSink, health *Health, snaps SnapshotSink) *Loop {
	return &Loop{
		cfg:    cfg,
		src:    src,
		det:    det,
		state:  state,
		dist:   dist,
		meta:   meta,
		health: health,
		snaps:  snaps,
	}
}

// RequestSnapshot marks the next published frame for retention. It never
// blocks; redundant requests before the next frame collapse into one.
func (l *Loop) RequestSnapshot() {
	l.snapshotWant.Store(true)
}

// Run drives the capture loop until ctx is cancelled or the capture retry
// budget is exhausted. It returns nil on cancellation and a *CaptureError
// on an unrecoverable device fault.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.cfg.TargetFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[Pipeline] Capture loop started (target %d fps, detector %s)", l.cfg.TargetFPS, l.det.Name())

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Pipeline] Capture loop stopped after %d frames", l.seq)
			return nil
		case <-ticker.C:
		}

		raw, err := l.readWithRetry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[Pipeline] Fatal: %v", err)
			return err
		}

		l.process(ctx, raw)
	}
}

// readWithRetry pulls one frame, retrying device failures with linear
// backoff up to the configured budget.
func (l *Loop) readWithRetry(ctx context.Context) (RawFrame, error) {
	var lastErr error
	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		raw, err := l.src.Read(ctx)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		l.health.ObserveCaptureFailure()
		log.Printf("[Pipeline] Capture failure (attempt %d/%d): %v", attempt, l.cfg.MaxRetries, err)

		select {
		case <-ctx.Done():
			return RawFrame{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * l.cfg.RetryBackoff):
		}
	}
	return RawFrame{}, &CaptureError{Attempts: l.cfg.MaxRetries, Err: lastErr}
}

// process runs one iteration: state snapshot, optional detection,
// publication. The state is read exactly once so a command arriving
// mid-frame takes effect on the next iteration.
func (l *Loop) process(ctx context.Context, raw RawFrame) {
	start := time.Now()
	snap := l.state.Snapshot()

	regions := []Region{}
	data := raw.Data
	var detectionMs float64

	if snap.DetectionEnabled {
		detStart := time.Now()
		det, err := l.det.Detect(ctx, raw.Data, snap.SensitivityThreshold)
		detectionMs = float64(time.Since(detStart).Microseconds()) / 1000.0
		if err != nil {
			// Publish the raw frame anyway; a bad detection pass must not
			// stall the stream.
			log.Printf("[Pipeline] Detection error on frame %d: %v", l.seq+1, err)
		} else {
			regions = det.Regions
			if det.Annotated != nil {
				data = det.Annotated
			} else if len(regions) > 0 {
				data = l.renderOverlay(raw.Data, regions)
			}
		}
	}

	l.seq++
	now := time.Now()
	var fps float64
	if !l.lastPublish.IsZero() {
		if gap := now.Sub(l.lastPublish).Seconds(); gap > 0 {
			fps = 1.0 / gap
		}
	}
	l.lastPublish = now

	frame := &Frame{
		Data:      data,
		Seq:       l.seq,
		Timestamp: raw.Timestamp,
		Width:     raw.Width,
		Height:    raw.Height,
	}
	l.dist.Publish(frame)

	if l.snapshotWant.Swap(false) && l.snaps != nil {
		// Hand off without blocking the loop; the sink owns durability.
		go func() {
			if err := l.snaps.Save(frame); err != nil {
				log.Printf("[Pipeline] Snapshot save failed for frame %d: %v", frame.Seq, err)
			}
		}()
	}

	perf := PerformanceSample{
		ProcessingMs: float64(time.Since(start).Microseconds()) / 1000.0,
		DetectionMs:  detectionMs,
		FPS:          fps,
	}
	result := DetectionResult{
		Regions:   regions,
		Count:     len(regions),
		FrameSeq:  l.seq,
		Timestamp: raw.Timestamp,
	}
	l.meta.PublishMetadata(result, perf)
	l.health.ObservePublish(perf)
}

// renderOverlay draws bounding boxes on a frame for detectors that only
// report regions.
func (l *Loop) renderOverlay(jpegData []byte, regions []Region) []byte {
	boxes := make([]overlay.Box, 0, len(regions))
	for _, r := range regions {
		boxes = append(boxes, overlay.Box{X: r.X, Y: r.Y, W: r.W, H: r.H, Label: "Face"})
	}
	annotated, err := overlay.DrawJPEG(jpegData, boxes)
	if err != nil {
		return jpegData
	}
	return annotated
}
