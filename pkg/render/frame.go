package render

import (
	"bytes"
	"image"
	"image/color"
)

// Size is the edge length of the square panel in pixels.
const Size = 64

// Bounds is the frame rectangle.
var Bounds = image.Rect(0, 0, Size, Size)

// Frame is one composited 64×64 RGBA image. A Frame is never modified
// after Compose returns it.
type Frame struct {
	img *image.RGBA
}

// NewFrame wraps a copy of img, which must be exactly Size×Size.
func NewFrame(img image.Image) (*Frame, bool) {
	if img.Bounds().Dx() != Size || img.Bounds().Dy() != Size {
		return nil, false
	}
	dst := image.NewRGBA(Bounds)
	b := img.Bounds()
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			dst.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return &Frame{img: dst}, true
}

// Bounds returns the frame rectangle.
func (f *Frame) Bounds() image.Rectangle { return f.img.Bounds() }

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) color.RGBA { return f.img.RGBAAt(x, y) }

// RGBA returns a copy of the frame pixels.
func (f *Frame) RGBA() *image.RGBA {
	dst := image.NewRGBA(f.img.Bounds())
	copy(dst.Pix, f.img.Pix)
	return dst
}

// Equal reports whether two frames are byte-identical.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	return bytes.Equal(f.img.Pix, other.img.Pix)
}
