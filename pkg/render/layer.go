package render

import (
	"image"
	"image/color"
)

// Anchor is the corner a layer is placed against.
type Anchor int

const (
	TopLeft Anchor = iota
	TopRight
	BottomLeft
	BottomRight
)

func (a Anchor) String() string {
	switch a {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	default:
		return "unknown"
	}
}

// Placement positions a block of size w×h. DX and DY are measured inward
// from the anchor corner: for a right anchor DX is the gap between the
// block's right edge and the frame's right edge.
type Placement struct {
	Anchor Anchor
	DX, DY int
}

// At is shorthand for a Placement.
func At(a Anchor, dx, dy int) Placement {
	return Placement{Anchor: a, DX: dx, DY: dy}
}

// Origin returns the top-left pixel of a w×h block.
func (p Placement) Origin(w, h int) image.Point {
	x, y := p.DX, p.DY
	if p.Anchor == TopRight || p.Anchor == BottomRight {
		x = Size - w - p.DX
	}
	if p.Anchor == BottomLeft || p.Anchor == BottomRight {
		y = Size - h - p.DY
	}
	return image.Pt(x, y)
}

// Kind determines a layer's z-order.
type Kind int

const (
	KindText Kind = iota
	KindIcon
)

func (k Kind) String() string {
	if k == KindIcon {
		return "icon"
	}
	return "text"
}

// ShadowColor is the colour of every layer shadow.
var ShadowColor = color.RGBA{0, 0, 0, 255}

// shadowOffsets are drawn in order before the layer itself.
var shadowOffsets = []image.Point{{1, 0}, {0, 1}, {1, 1}}

// Layer is one foreground contribution to a frame.
//
// A text layer sets Text. An icon layer sets either Sprite or Image; Image
// is scaled with nearest-neighbour sampling to Scale times its size.
type Layer struct {
	Name  string
	Kind  Kind
	Place Placement

	Text   Text
	Sprite *Sprite
	Image  image.Image
	Scale  int
}

// TextLayer returns a text layer.
func TextLayer(name string, place Placement, text Text) Layer {
	return Layer{Name: name, Kind: KindText, Place: place, Text: text}
}

// IconLayer returns a sprite layer drawn at the given integer scale.
func IconLayer(name string, place Placement, sprite Sprite, scale int) Layer {
	return Layer{Name: name, Kind: KindIcon, Place: place, Sprite: &sprite, Scale: scale}
}
