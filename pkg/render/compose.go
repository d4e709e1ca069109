package render

import (
	"image"
	"image/color"
	"sort"

	"golang.org/x/image/draw"

	"github.com/matzehuels/pixclock/pkg/errors"
)

// Compositor draws layers into frames using a fixed set of glyph styles.
type Compositor struct {
	glyphs map[Style]GlyphSet
}

// NewCompositor returns a compositor. Every style used by a text layer must
// be present in glyphs.
func NewCompositor(glyphs map[Style]GlyphSet) *Compositor {
	m := make(map[Style]GlyphSet, len(glyphs))
	for k, v := range glyphs {
		m[k] = v
	}
	return &Compositor{glyphs: m}
}

// Compose draws bg and then every layer into a new frame. A nil bg yields
// black; a bg that is not Size×Size is scaled to fit with nearest-neighbour
// sampling.
func (c *Compositor) Compose(bg image.Image, layers []Layer) (*Frame, error) {
	dst := image.NewRGBA(Bounds)
	draw.Draw(dst, Bounds, image.NewUniform(color.RGBA{0, 0, 0, 255}), image.Point{}, draw.Src)

	if bg != nil {
		if bg.Bounds().Size() == Bounds.Size() {
			draw.Draw(dst, Bounds, bg, bg.Bounds().Min, draw.Over)
		} else {
			draw.NearestNeighbor.Scale(dst, Bounds, bg, bg.Bounds(), draw.Over, nil)
		}
	}

	ordered := make([]Layer, len(layers))
	copy(ordered, layers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind < ordered[j].Kind
	})

	for _, l := range ordered {
		stamp, err := c.stamp(l)
		if err != nil {
			return nil, err
		}
		if stamp == nil || stamp.Bounds().Empty() {
			continue
		}
		drawWithShadow(dst, stamp, l.Place.Origin(stamp.Bounds().Dx(), stamp.Bounds().Dy()))
	}
	return &Frame{img: dst}, nil
}

// stamp renders a layer into its own transparent image.
func (c *Compositor) stamp(l Layer) (*image.RGBA, error) {
	switch l.Kind {
	case KindText:
		return rasterize(l.Text, c.glyphs)
	case KindIcon:
		if l.Sprite != nil {
			return l.Sprite.Image(l.Scale), nil
		}
		if l.Image != nil {
			return scaleImage(l.Image, l.Scale), nil
		}
		return nil, nil
	default:
		return nil, errors.New(errors.ErrCodeInternal, "layer %q has unknown kind %d", l.Name, l.Kind)
	}
}

// drawWithShadow stamps the shadow passes then the layer, all source-over.
func drawWithShadow(dst *image.RGBA, stamp *image.RGBA, at image.Point) {
	r := stamp.Bounds().Sub(stamp.Bounds().Min).Add(at)
	shadow := image.NewUniform(ShadowColor)
	for _, off := range shadowOffsets {
		draw.DrawMask(dst, r.Add(off), shadow, image.Point{}, stamp, stamp.Bounds().Min, draw.Over)
	}
	draw.Draw(dst, r, stamp, stamp.Bounds().Min, draw.Over)
}

func scaleImage(src image.Image, scale int) *image.RGBA {
	scale = max(scale, 1)
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
