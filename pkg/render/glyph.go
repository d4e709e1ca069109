package render

import (
	"image"
	"sync"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Script is a character class used to pick a glyph source.
type Script int

const (
	Latin Script = iota
	Hangul
	Symbol
)

func (s Script) String() string {
	switch s {
	case Hangul:
		return "hangul"
	case Symbol:
		return "symbol"
	default:
		return "latin"
	}
}

// ScriptOf classifies r.
func ScriptOf(r rune) Script {
	switch {
	case unicode.Is(unicode.Hangul, r):
		return Hangul
	case unicode.IsSymbol(r):
		return Symbol
	default:
		return Latin
	}
}

// Glyph is one rasterised character with binary coverage.
type Glyph struct {
	// Mask holds 0 or 0xff per pixel, with its origin at (0, 0).
	Mask *image.Alpha
	// Offset is the mask's top-left relative to the pen on the baseline.
	Offset image.Point
	// Advance is the pen movement in pixels.
	Advance int
}

// LineBox is the vertical extent of a source relative to the baseline.
// Top is negative (above the baseline).
type LineBox struct {
	Top, Bottom int
}

// GlyphSource rasterises characters of one script class.
type GlyphSource interface {
	Glyph(r rune) (Glyph, bool)
	LineBox() LineBox
}

// coverageThreshold is the minimum antialiased coverage (of 0xffff) that
// inks a pixel.
const coverageThreshold = 0x8000

// FaceSource adapts a font.Face into a GlyphSource. Raise lifts every
// glyph by that many pixels.
type FaceSource struct {
	face  font.Face
	raise int

	mu    sync.Mutex
	cache map[rune]cachedGlyph
}

type cachedGlyph struct {
	g  Glyph
	ok bool
}

// NewFaceSource returns a GlyphSource drawing from face.
func NewFaceSource(face font.Face, raise int) *FaceSource {
	return &FaceSource{face: face, raise: raise, cache: make(map[rune]cachedGlyph)}
}

// Glyph rasterises r, thresholding the face's coverage to 0 or 0xff.
func (s *FaceSource) Glyph(r rune) (Glyph, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[r]; ok {
		return c.g, c.ok
	}

	dr, mask, maskp, adv, ok := s.face.Glyph(fixed.Point26_6{}, r)
	if !ok {
		s.cache[r] = cachedGlyph{}
		return Glyph{}, false
	}

	// The face reuses its mask buffer, so copy out before the next call.
	out := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	if mask != nil {
		for y := 0; y < dr.Dy(); y++ {
			for x := 0; x < dr.Dx(); x++ {
				_, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA()
				if a >= coverageThreshold {
					out.Pix[y*out.Stride+x] = 0xff
				}
			}
		}
	}

	g := Glyph{
		Mask:    out,
		Offset:  image.Pt(dr.Min.X, dr.Min.Y-s.raise),
		Advance: adv.Round(),
	}
	s.cache[r] = cachedGlyph{g: g, ok: true}
	return g, true
}

// LineBox returns the face's ascent and descent shifted by the raise.
func (s *FaceSource) LineBox() LineBox {
	m := s.face.Metrics()
	return LineBox{
		Top:    -m.Ascent.Ceil() - s.raise,
		Bottom: m.Descent.Ceil() - s.raise,
	}
}

// GlyphSet maps script classes to sources. Latin is required and serves
// any class without its own source, and any character its own source
// lacks.
type GlyphSet struct {
	sources map[Script]GlyphSource
}

// NewGlyphSet returns a set with latin as the fallback source.
func NewGlyphSet(latin GlyphSource) GlyphSet {
	return GlyphSet{sources: map[Script]GlyphSource{Latin: latin}}
}

// With returns a copy of the set using src for script.
func (gs GlyphSet) With(script Script, src GlyphSource) GlyphSet {
	m := make(map[Script]GlyphSource, len(gs.sources)+1)
	for k, v := range gs.sources {
		m[k] = v
	}
	if src != nil {
		m[script] = src
	}
	return GlyphSet{sources: m}
}

// Source returns the source for r's script class.
func (gs GlyphSet) Source(r rune) GlyphSource {
	if src, ok := gs.sources[ScriptOf(r)]; ok {
		return src
	}
	return gs.sources[Latin]
}

// Glyph looks r up in its class source, then in the Latin source.
func (gs GlyphSet) Glyph(r rune) (Glyph, LineBox, bool) {
	src := gs.Source(r)
	if g, ok := src.Glyph(r); ok {
		return g, src.LineBox(), true
	}
	latin := gs.sources[Latin]
	if src != latin {
		if g, ok := latin.Glyph(r); ok {
			return g, latin.LineBox(), true
		}
	}
	return Glyph{}, LineBox{}, false
}

// Valid reports whether the set has a Latin source.
func (gs GlyphSet) Valid() bool {
	return gs.sources[Latin] != nil
}
