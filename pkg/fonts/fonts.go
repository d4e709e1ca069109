// Package fonts provides the font faces used to rasterise text on the panel.
//
// The built-in faces come from the Go font family (golang.org/x/image/font/gofont),
// which is compiled into the binary, so the display works without any font
// files on disk. TrueType/OpenType files can replace them at startup via
// [LoadFile]; that is the only way to get Hangul glyphs, which the Go fonts
// do not cover.
//
// Faces are created with full hinting at 72 DPI so one point is
// one pixel on the 64×64 matrix.
package fonts

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Name identifies a built-in font.
type Name string

const (
	Regular Name = "regular"
	Bold    Name = "bold"
	Mono    Name = "mono"
)

var builtin = map[Name][]byte{
	Regular: goregular.TTF,
	Bold:    gobold.TTF,
	Mono:    gomono.TTF,
}

// Parsed fonts are cached after first use.
var (
	parsed   = map[Name]*opentype.Font{}
	parsedMu sync.Mutex
)

// Face returns a face of the built-in font at size pixels.
func Face(name Name, size float64) (font.Face, error) {
	f, err := builtinFont(name)
	if err != nil {
		return nil, err
	}
	return newFace(f, size)
}

// MustFace is like Face but panics on error. The built-in fonts are known
// good, so this only fails for an unknown name.
func MustFace(name Name, size float64) font.Face {
	face, err := Face(name, size)
	if err != nil {
		panic(err)
	}
	return face
}

// LoadFile parses a TTF/OTF file and returns a face at size pixels.
func LoadFile(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return newFace(f, size)
}

// Basic returns the fixed 7×13 bitmap face. It needs no parsing and covers
// ASCII only.
func Basic() font.Face {
	return basicfont.Face7x13
}

func builtinFont(name Name) (*opentype.Font, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()

	if f, ok := parsed[name]; ok {
		return f, nil
	}
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown font %q", name)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	parsed[name] = f
	return f, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %g", size)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
