package overlay

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blackJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestDrawJPEGNoBoxesReturnsInput(t *testing.T) {
	data := blackJPEG(t, 32, 32)
	out, err := DrawJPEG(data, nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDrawJPEGDrawsBoxEdges(t *testing.T) {
	data := blackJPEG(t, 64, 64)
	out, err := DrawJPEG(data, []Box{{X: 10, Y: 10, W: 30, H: 30}})
	require.NoError(t, err)
	require.NotEqual(t, data, out)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// Top edge of the box should be clearly green against the black frame.
	r, g, b, _ := img.At(20, 10).RGBA()
	assert.Greater(t, g, uint32(0x8000), "edge pixel should be green")
	assert.Less(t, r, uint32(0x8000))
	assert.Less(t, b, uint32(0x8000))

	// A pixel well inside the box stays untouched.
	_, g, _, _ = img.At(25, 25).RGBA()
	assert.Less(t, g, uint32(0x4000), "interior pixel should stay dark")
}

func TestDrawJPEGClampsOutOfBoundsBoxes(t *testing.T) {
	data := blackJPEG(t, 32, 32)
	boxes := []Box{
		{X: -5, Y: -5, W: 20, H: 20, Label: "Face"},
		{X: 25, Y: 25, W: 100, H: 100},
	}
	out, err := DrawJPEG(data, boxes)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
}

func TestDrawJPEGRejectsGarbage(t *testing.T) {
	_, err := DrawJPEG([]byte("not a jpeg"), []Box{{X: 0, Y: 0, W: 1, H: 1}})
	assert.Error(t, err)
}

func TestDrawJPEGLabelNearTopEdge(t *testing.T) {
	data := blackJPEG(t, 64, 64)
	// Label position would land above the frame; it must be clamped, not
	// dropped or panic.
	out, err := DrawJPEG(data, []Box{{X: 2, Y: 2, W: 20, H: 20, Label: "Face"}})
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	var green bool
	for x := 0; x < 30 && !green; x++ {
		for y := 0; y < 12; y++ {
			_, g, _, _ := img.At(x, y).RGBA()
			if g > 0x8000 {
				green = true
				break
			}
		}
	}
	assert.True(t, green, "label glyphs should appear near the top edge")
}
