// Package overlay draws detection boxes on JPEG frames without any native
// dependency. Detectors that annotate in-process (e.g. the Haar adapter)
// bypass it; the pipeline uses it for detectors that only report regions.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const jpegQuality = 80

var boxColor = color.RGBA{0, 255, 0, 255}

// Box is one labeled rectangle in pixel coordinates.
type Box struct {
	X, Y, W, H int
	Label      string
}

// DrawJPEG decodes a JPEG frame, draws the boxes, and re-encodes it.
func DrawJPEG(jpegData []byte, boxes []Box) ([]byte, error) {
	if len(boxes) == 0 {
		return jpegData, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	for _, b := range boxes {
		drawBox(rgba, b, boxColor, 2)
		if b.Label != "" {
			drawLabel(rgba, b.X, b.Y-10, b.Label, boxColor)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBox(img *image.RGBA, b Box, c color.RGBA, thickness int) {
	bounds := img.Bounds()

	for t := 0; t < thickness; t++ {
		for i := b.X; i < b.X+b.W && i < bounds.Max.X; i++ {
			if i < 0 {
				continue
			}
			if y := b.Y + t; y >= 0 && y < bounds.Max.Y {
				img.Set(i, y, c)
			}
			if y := b.Y + b.H - t; y >= 0 && y < bounds.Max.Y {
				img.Set(i, y, c)
			}
		}
		for j := b.Y; j < b.Y+b.H && j < bounds.Max.Y; j++ {
			if j < 0 {
				continue
			}
			if x := b.X + t; x >= 0 && x < bounds.Max.X {
				img.Set(x, j, c)
			}
			if x := b.X + b.W - t; x >= 0 && x < bounds.Max.X {
				img.Set(x, j, c)
			}
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(label)
}
