package ws

import (
	"time"

	"github.com/netglass-io/Camera/internal/pipeline"
)

// Outbound messages carry a "type" discriminator so browser clients can
// route them without inspecting the payload shape.

// MetadataMessage reports the detection output of a frame.
type MetadataMessage struct {
	Type        string            `json:"type"` // "metadata"
	FaceCount   int               `json:"face_count"`
	Faces       []pipeline.Region `json:"faces"`
	FrameNumber uint64            `json:"frame_number"`
	FPS         float64           `json:"fps"`
	Timestamp   time.Time         `json:"timestamp"`
}

// PerformanceMessage reports per-frame timing.
type PerformanceMessage struct {
	Type             string  `json:"type"` // "performance"
	ProcessingTimeMs float64 `json:"processing_time_ms"`
	DetectionTimeMs  float64 `json:"detection_time_ms"`
	FPS              float64 `json:"fps"`
}

// StatusMessage reports processing state. Fields are pointers so partial
// updates (a single toggled flag) serialize without dragging the rest of
// the state along.
type StatusMessage struct {
	Type             string   `json:"type"` // "status"
	Connected        *bool    `json:"connected,omitempty"`
	DetectionEnabled *bool    `json:"detection_enabled,omitempty"`
	Sensitivity      *float64 `json:"sensitivity,omitempty"`
	CalibrationEpoch *uint64  `json:"calibration_epoch,omitempty"`
	Message          string   `json:"message,omitempty"`
	CameraResolution string   `json:"camera_resolution,omitempty"`
	TargetFPS        int      `json:"target_fps,omitempty"`
}

// NewMetadataMessage builds a metadata message from a detection result.
func NewMetadataMessage(res pipeline.DetectionResult, fps float64) *MetadataMessage {
	faces := res.Regions
	if faces == nil {
		faces = []pipeline.Region{}
	}
	return &MetadataMessage{
		Type:        "metadata",
		FaceCount:   res.Count,
		Faces:       faces,
		FrameNumber: res.FrameSeq,
		FPS:         round1(fps),
		Timestamp:   res.Timestamp,
	}
}

// NewPerformanceMessage builds a performance message from a sample.
func NewPerformanceMessage(perf pipeline.PerformanceSample) *PerformanceMessage {
	return &PerformanceMessage{
		Type:             "performance",
		ProcessingTimeMs: round1(perf.ProcessingMs),
		DetectionTimeMs:  round1(perf.DetectionMs),
		FPS:              round1(perf.FPS),
	}
}

// NewStatusMessage converts a pipeline status update to its wire form.
func NewStatusMessage(u pipeline.StatusUpdate) *StatusMessage {
	return &StatusMessage{
		Type:             "status",
		DetectionEnabled: u.DetectionEnabled,
		Sensitivity:      u.Sensitivity,
		CalibrationEpoch: u.CalibrationEpoch,
		Message:          u.Message,
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
