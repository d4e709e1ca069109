package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/matzehuels/pixclock/pkg/errors"
)

// Style names a glyph set, typically one per text size.
type Style string

const (
	StyleLarge  Style = "large"
	StyleMedium Style = "medium"
	StyleSmall  Style = "small"
)

// Span is a run of text in one colour and style.
type Span struct {
	Text  string
	Color color.RGBA
	Style Style
}

// Text is a block of spans drawn left to right on a shared baseline.
// Kerning is added after every character except the last.
type Text struct {
	Spans   []Span
	Kerning int
}

// Plain returns a single-span text block.
func Plain(s string, c color.RGBA, style Style) Text {
	return Text{Spans: []Span{{Text: s, Color: c, Style: style}}}
}

// String returns the concatenated span text.
func (t Text) String() string {
	var s string
	for _, sp := range t.Spans {
		s += sp.Text
	}
	return s
}

type placedGlyph struct {
	g     Glyph
	x     int
	color color.RGBA
}

// rasterize draws t into a transparent image sized to the block: the width
// is the advance-based pen extent and the height is the union of the line
// boxes of every source used.
func rasterize(t Text, sets map[Style]GlyphSet) (*image.RGBA, error) {
	var (
		placed   []placedGlyph
		pen      int
		box      LineBox
		haveBox  bool
		lastKern int
	)
	for _, sp := range t.Spans {
		set, ok := sets[sp.Style]
		if !ok || !set.Valid() {
			return nil, errors.New(errors.ErrCodeInternal, "no glyph set for style %q", sp.Style)
		}
		for _, r := range sp.Text {
			g, lb, ok := set.Glyph(r)
			if !ok {
				continue
			}
			if !haveBox {
				box, haveBox = lb, true
			} else {
				box.Top = min(box.Top, lb.Top)
				box.Bottom = max(box.Bottom, lb.Bottom)
			}
			placed = append(placed, placedGlyph{g: g, x: pen, color: sp.Color})
			pen += g.Advance + t.Kerning
			lastKern = t.Kerning
		}
	}

	w := max(pen-lastKern, 0)
	h := box.Bottom - box.Top
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for _, p := range placed {
		r := p.g.Mask.Bounds().Add(image.Pt(p.x+p.g.Offset.X, p.g.Offset.Y-box.Top))
		draw.DrawMask(img, r, image.NewUniform(p.color), image.Point{}, p.g.Mask, image.Point{}, draw.Over)
	}
	return img, nil
}

// Measure returns the pixel size of t as it would be placed.
func (c *Compositor) Measure(t Text) (image.Point, error) {
	img, err := rasterize(t, c.glyphs)
	if err != nil {
		return image.Point{}, err
	}
	return img.Bounds().Size(), nil
}
