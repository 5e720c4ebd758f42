package pipeline

import (
	"time"
)

// Frame is one captured image after processing. It is immutable once
// published: the distributor hands the same Frame to every consumer and
// nothing may write to Data afterwards.
type Frame struct {
	// Data is the JPEG-encoded image, annotated if detection ran.
	Data []byte
	// Seq is the frame sequence number, strictly increasing and gap-free
	// from the producer's point of view.
	Seq uint64
	// Timestamp is the capture time.
	Timestamp time.Time
	// Width and Height describe the image in pixels.
	Width  int
	Height int
}

// Region is a detected rectangle in image coordinates (pixel units).
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectionResult carries the structured output of one processed frame.
// When detection is disabled the result is still published with an empty
// region list so consumers never special-case missing metadata.
type DetectionResult struct {
	Regions   []Region
	Count     int
	FrameSeq  uint64
	Timestamp time.Time
}

// PerformanceSample measures one pipeline iteration.
type PerformanceSample struct {
	// ProcessingMs is the full capture-to-publish duration.
	ProcessingMs float64
	// DetectionMs is the detection step alone. Zero when detection is off.
	DetectionMs float64
	// FPS is the instantaneous rate derived from the previous frame gap.
	FPS float64
}
