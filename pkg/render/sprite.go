package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Sprite is a small palette-indexed bitmap. Each row is a string; '.' is
// transparent and any other byte is looked up in Palette.
type Sprite struct {
	Rows    []string
	Palette map[byte]color.RGBA
}

// Image returns the sprite scaled by an integer factor with
// nearest-neighbour sampling.
func (s Sprite) Image(scale int) *image.RGBA {
	scale = max(scale, 1)
	w := 0
	for _, row := range s.Rows {
		w = max(w, len(row))
	}
	src := image.NewRGBA(image.Rect(0, 0, w, len(s.Rows)))
	for y, row := range s.Rows {
		for x := 0; x < len(row); x++ {
			if c, ok := s.Palette[row[x]]; ok {
				src.SetRGBA(x, y, c)
			}
		}
	}
	if scale == 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w*scale, len(s.Rows)*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Icon colours by weather condition.
var (
	colorSun      = color.RGBA{255, 220, 50, 255}
	colorPartly   = color.RGBA{120, 120, 140, 255}
	colorCloud    = color.RGBA{100, 100, 120, 255}
	colorRain     = color.RGBA{130, 170, 255, 255}
	colorSnowSky  = color.RGBA{120, 130, 150, 255}
	colorSnow     = color.RGBA{235, 240, 255, 255}
	colorThunder  = color.RGBA{255, 230, 100, 255}
	colorDarkSky  = color.RGBA{80, 80, 95, 255}
	colorDimCloud = color.RGBA{150, 150, 165, 255}
)

// Icons holds the weather condition sprites keyed by condition name.
var Icons = map[string]Sprite{
	"clear": {
		Palette: map[byte]color.RGBA{'Y': colorSun},
		Rows: []string{
			"....Y....",
			".Y.....Y.",
			"...YYY...",
			"..YYYYY..",
			"Y.YYYYY.Y",
			"..YYYYY..",
			"...YYY...",
			".Y.....Y.",
			"....Y....",
		},
	},
	"partly-cloudy": {
		Palette: map[byte]color.RGBA{'Y': colorSun, 'C': colorPartly},
		Rows: []string{
			".....Y...",
			"..Y.YYY..",
			"...YYYYY.",
			"...YYYYY.",
			"..CCCYYY.",
			".CCCCCC..",
			"CCCCCCCC.",
			"CCCCCCCCC",
			".CCCCCCC.",
		},
	},
	"cloudy": {
		Palette: map[byte]color.RGBA{'C': colorCloud, 'L': colorDimCloud},
		Rows: []string{
			".........",
			"...LLL...",
			"..LCCCL..",
			".LCCCCCL.",
			"LCCCCCCCL",
			"CCCCCCCCC",
			"CCCCCCCCC",
			".CCCCCCC.",
			".........",
		},
	},
	"rain": {
		Palette: map[byte]color.RGBA{'C': colorCloud, 'B': colorRain},
		Rows: []string{
			"...CCC...",
			"..CCCCC..",
			".CCCCCCC.",
			"CCCCCCCCC",
			".CCCCCCC.",
			".........",
			".B..B..B.",
			"B..B..B..",
			".........",
		},
	},
	"snow": {
		Palette: map[byte]color.RGBA{'C': colorSnowSky, 'W': colorSnow},
		Rows: []string{
			"...CCC...",
			"..CCCCC..",
			".CCCCCCC.",
			"CCCCCCCCC",
			".CCCCCCC.",
			".........",
			".W..W..W.",
			".........",
			"W..W..W..",
		},
	},
	"thunder": {
		Palette: map[byte]color.RGBA{'C': colorDarkSky, 'Y': colorThunder},
		Rows: []string{
			"...CCC...",
			"..CCCCC..",
			".CCCCCCC.",
			"CCCCCCCCC",
			".CCCYCCC.",
			"...YY....",
			"..YYYY...",
			"....Y....",
			"...Y.....",
		},
	},
}
