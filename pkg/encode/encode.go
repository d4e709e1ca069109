// Package encode turns frames into PNG payloads small enough for one
// device transfer.
//
// The encoder walks a fixed degradation ladder and returns the first level
// whose PNG fits the size limit:
//
//	level  bits/channel  brightness
//	0      8             1.00
//	1      5             1.00
//	2      4             1.00
//	3      3             1.00
//	4      2             1.00
//	5      2             0.75
//	6      2             0.50
//	7      1             0.50
//
// Colour depth is reduced first, then brightness. Fewer bits means fewer
// distinct colours (better compression); lower brightness pulls dark
// shades together. When no level fits, [Encoder.Encode] returns an error
// wrapping [ErrTooLarge]; a payload is never truncated.
package encode

import (
	"bytes"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/render"
)

// DefaultLimit is the largest payload the panel accepts in one transfer.
const DefaultLimit = 12 * 1024

// ErrTooLarge is wrapped by every EncodingTooLarge error.
var ErrTooLarge = stderrors.New("encoded frame exceeds transfer limit")

// Level is one step of the degradation ladder.
type Level struct {
	Bits       int
	Brightness float64
}

// Ladder is the fixed degradation order.
var Ladder = []Level{
	{Bits: 8, Brightness: 1},
	{Bits: 5, Brightness: 1},
	{Bits: 4, Brightness: 1},
	{Bits: 3, Brightness: 1},
	{Bits: 2, Brightness: 1},
	{Bits: 2, Brightness: 0.75},
	{Bits: 2, Brightness: 0.5},
	{Bits: 1, Brightness: 0.5},
}

// Payload is an encoded frame.
type Payload struct {
	Data []byte
	// Level is the index into Ladder that produced Data.
	Level int
}

// Len returns the payload size in bytes.
func (p Payload) Len() int { return len(p.Data) }

// Encoder encodes frames under a byte limit.
type Encoder struct {
	limit  int
	ladder []Level
	png    png.Encoder
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLadder replaces the degradation ladder. Used by tests.
func WithLadder(levels []Level) Option {
	return func(e *Encoder) { e.ladder = levels }
}

// New returns an encoder for limit bytes. A non-positive limit uses
// DefaultLimit.
func New(limit int, opts ...Option) *Encoder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	e := &Encoder{
		limit:  limit,
		ladder: Ladder,
		png:    png.Encoder{CompressionLevel: png.BestCompression},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limit returns the byte limit.
func (e *Encoder) Limit() int { return e.limit }

// Encode returns the first ladder level that fits the limit.
func (e *Encoder) Encode(f *render.Frame) (Payload, error) {
	src := f.RGBA()
	smallest := math.MaxInt
	for i, lvl := range e.ladder {
		data, err := e.encodeLevel(src, lvl)
		if err != nil {
			return Payload{}, errors.Wrap(errors.ErrCodeInternal, err, "encode level %d", i)
		}
		if len(data) <= e.limit {
			return Payload{Data: data, Level: i}, nil
		}
		smallest = min(smallest, len(data))
	}
	return Payload{}, errors.Wrap(errors.ErrCodeEncodingTooLarge, ErrTooLarge,
		"smallest encoding is %d bytes, limit %d", smallest, e.limit)
}

func (e *Encoder) encodeLevel(src *image.RGBA, lvl Level) ([]byte, error) {
	img := Degrade(src, lvl)

	var buf bytes.Buffer
	if p := palettize(img); p != nil {
		if err := e.png.Encode(&buf, p); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := e.png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Degrade applies a ladder level: brightness scaling, then quantisation of
// each channel to lvl.Bits.
func Degrade(src image.Image, lvl Level) *image.NRGBA {
	bits := min(max(lvl.Bits, 1), 8)
	levels := float64(int(1)<<bits - 1)
	scale := lvl.Brightness

	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: quantize(c.R, scale, levels),
			G: quantize(c.G, scale, levels),
			B: quantize(c.B, scale, levels),
			A: 255,
		}
	})
}

// quantize scales v by brightness and snaps it to one of levels+1 evenly
// spaced values spanning 0..255.
func quantize(v uint8, brightness, levels float64) uint8 {
	x := float64(v) * brightness
	step := math.Round(x / 255 * levels)
	return uint8(math.Round(step * 255 / levels))
}

// palettize returns img as a paletted image when it has at most 256
// colours, else nil. Palette order is first occurrence in row-major
// order, which keeps the output deterministic.
func palettize(img *image.NRGBA) *image.Paletted {
	b := img.Bounds()
	index := make(map[color.NRGBA]uint8)
	var pal color.Palette
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if _, ok := index[c]; ok {
				continue
			}
			if len(pal) == 256 {
				return nil
			}
			index[c] = uint8(len(pal))
			pal = append(pal, c)
		}
	}

	p := image.NewPaletted(b, pal)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p.SetColorIndex(x, y, index[img.NRGBAAt(x, y)])
		}
	}
	return p
}
