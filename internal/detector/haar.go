// Package detector provides the pluggable detection algorithms behind the
// pipeline's Detector contract. The Haar cascade adapter is the production
// detector; anything that produces bounding boxes can replace it.
package detector

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/netglass-io/Camera/internal/pipeline"
)

var haarColor = color.RGBA{0, 255, 0, 255}

// Haar detects faces with an OpenCV Haar cascade classifier and annotates
// the frame in-process. The classifier is not reentrant, so Detect is
// serialized; the capture loop is the only caller in practice.
type Haar struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	minSize    image.Point
}

// NewHaar loads the cascade description from cascadePath.
func NewHaar(cascadePath string) (*Haar, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("load haar cascade %s: classifier is empty", cascadePath)
	}
	return &Haar{
		classifier: classifier,
		minSize:    image.Pt(30, 30),
	}, nil
}

// Name implements pipeline.Detector.
func (h *Haar) Name() string { return "haar" }

// Detect runs the cascade over a grayscale copy of the frame and draws the
// detected boxes on the color original.
func (h *Haar) Detect(ctx context.Context, frame []byte, sensitivity float64) (pipeline.Detection, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Detection{}, err
	}

	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		return pipeline.Detection{}, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return pipeline.Detection{}, fmt.Errorf("decode frame: empty image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	scale, neighbors := haarParams(sensitivity)

	h.mu.Lock()
	rects := h.classifier.DetectMultiScaleWithParams(gray, scale, neighbors, 0, h.minSize, image.Pt(0, 0))
	h.mu.Unlock()

	regions := make([]pipeline.Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, pipeline.Region{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()})
		gocv.Rectangle(&img, r, haarColor, 2)
		gocv.PutText(&img, "Face", image.Pt(r.Min.X, r.Min.Y-10), gocv.FontHersheySimplex, 0.5, haarColor, 2)
	}

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return pipeline.Detection{}, fmt.Errorf("encode annotated frame: %w", err)
	}
	defer buf.Close()

	annotated := make([]byte, len(buf.GetBytes()))
	copy(annotated, buf.GetBytes())

	return pipeline.Detection{Regions: regions, Annotated: annotated}, nil
}

// Close releases the classifier.
func (h *Haar) Close() error {
	return h.classifier.Close()
}

// haarParams maps the [0,1] sensitivity threshold onto cascade parameters.
// Higher sensitivity scans at a finer scale step and accepts fewer
// neighboring hits per detection. The midpoint reproduces the classic
// scaleFactor=1.1, minNeighbors=5 defaults.
func haarParams(sensitivity float64) (scale float64, neighbors int) {
	scale = 1.05 + (1-sensitivity)*0.1
	neighbors = int(math.Round(3 + (1-sensitivity)*4))
	return scale, neighbors
}

var _ pipeline.Detector = (*Haar)(nil)
