package pipeline

import (
	"golang.org/x/image/font"

	"github.com/matzehuels/pixclock/pkg/config"
	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/fonts"
	"github.com/matzehuels/pixclock/pkg/render"
)

// Pixel sizes of the text styles.
const (
	LargeSize  = 12
	MediumSize = 9
	SmallSize  = 8
	HangulSize = 9
)

// HangulRaise lifts Hangul glyphs in small text so they sit on the Latin
// cap line.
const HangulRaise = 2

// Glyphs builds the glyph sets for every text style. Built-in Go fonts are
// used unless cfg names a file. Hangul is only available when cfg.Hangul
// is set.
func Glyphs(cfg config.Fonts) (map[render.Style]render.GlyphSet, error) {
	large, err := face(cfg.Bold, fonts.Bold, LargeSize)
	if err != nil {
		return nil, err
	}
	medium, err := face(cfg.Regular, fonts.Regular, MediumSize)
	if err != nil {
		return nil, err
	}
	small, err := face(cfg.Small, fonts.Regular, SmallSize)
	if err != nil {
		return nil, err
	}

	sets := map[render.Style]render.GlyphSet{
		render.StyleLarge:  render.NewGlyphSet(render.NewFaceSource(large, 0)),
		render.StyleMedium: render.NewGlyphSet(render.NewFaceSource(medium, 0)),
		render.StyleSmall:  render.NewGlyphSet(render.NewFaceSource(small, 0)),
	}
	if cfg.Hangul == "" {
		return sets, nil
	}

	for style, raise := range map[render.Style]int{
		render.StyleLarge:  0,
		render.StyleMedium: 0,
		render.StyleSmall:  HangulRaise,
	} {
		hangul, err := fonts.LoadFile(cfg.Hangul, HangulSize)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load hangul font")
		}
		sets[style] = sets[style].With(render.Hangul, render.NewFaceSource(hangul, raise))
	}
	return sets, nil
}

func face(path string, fallback fonts.Name, size float64) (font.Face, error) {
	if path == "" {
		return fonts.Face(fallback, size)
	}
	f, err := fonts.LoadFile(path, size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load font %s", path)
	}
	return f, nil
}
