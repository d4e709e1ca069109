package content

import (
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/pixclock/pkg/integrations/openmeteo"
	"github.com/matzehuels/pixclock/pkg/render"
	"github.com/matzehuels/pixclock/pkg/schedule"
)

// skyTransition is how long before a period starts its colours begin to
// blend in.
const skyTransition = 30 * time.Minute

// SkyPeriod is a named part of the day with a top and bottom gradient colour.
type SkyPeriod struct {
	Name   string
	Start  time.Duration // offset from midnight
	Top    colorful.Color
	Bottom colorful.Color
}

func rgb(r, g, b uint8) colorful.Color {
	c, _ := colorful.MakeColor(color.RGBA{r, g, b, 255})
	return c
}

// SkyPeriods is the daily palette in start order. The last period wraps
// past midnight into the first.
var SkyPeriods = []SkyPeriod{
	{Name: "dawn", Start: 5 * time.Hour, Top: rgb(10, 10, 50), Bottom: rgb(180, 100, 60)},
	{Name: "sunrise", Start: 7 * time.Hour, Top: rgb(180, 100, 60), Bottom: rgb(100, 170, 230)},
	{Name: "day", Start: 9 * time.Hour, Top: rgb(80, 150, 220), Bottom: rgb(200, 220, 255)},
	{Name: "sunset", Start: 17 * time.Hour, Top: rgb(180, 80, 40), Bottom: rgb(80, 30, 100)},
	{Name: "night", Start: 19 * time.Hour, Top: rgb(5, 5, 20), Bottom: rgb(15, 15, 50)},
}

// skyTint darkens the gradient then mixes in a tint colour at 20%.
type skyTint struct {
	darken float64
	tint   colorful.Color
}

var skyTints = map[Condition]skyTint{
	openmeteo.Rain:         {0.5, rgb(0, 0, 30)},
	openmeteo.Thunder:      {0.5, rgb(0, 0, 30)},
	openmeteo.Snow:         {0.6, rgb(20, 20, 25)},
	openmeteo.Cloudy:       {0.8, rgb(10, 10, 10)},
	openmeteo.PartlyCloudy: {0.8, rgb(10, 10, 10)},
}

// SkyGradient returns the top and bottom colours at time of day tod. In
// the half hour before a period starts the previous period's colours blend
// towards it.
func SkyGradient(tod time.Duration) (top, bottom colorful.Color) {
	const day = 24 * time.Hour
	tod = ((tod % day) + day) % day

	cur := len(SkyPeriods) - 1
	for i, p := range SkyPeriods {
		if tod >= p.Start {
			cur = i
		}
	}
	next := (cur + 1) % len(SkyPeriods)
	until := SkyPeriods[next].Start - tod
	if until <= 0 {
		until += day
	}

	c, n := SkyPeriods[cur], SkyPeriods[next]
	if until > 0 && until <= skyTransition {
		t := 1 - float64(until)/float64(skyTransition)
		return c.Top.BlendRgb(n.Top, t), c.Bottom.BlendRgb(n.Bottom, t)
	}
	return c.Top, c.Bottom
}

// Sky draws a time-of-day gradient decorated for the weather: stars at
// night, drifting clouds and sunlight by day, rain, snow and lightning.
// The picture for a given minute and condition is always the same.
type Sky struct {
	weather Conditioner

	mu      sync.RWMutex
	current Fragment
}

var _ Provider = (*Sky)(nil)

// NewSky returns a sky provider. A nil weather draws a clear sky.
func NewSky(weather Conditioner) *Sky {
	return &Sky{weather: weather}
}

func (s *Sky) ID() schedule.ID { return BackgroundID }

// Refresh draws the sky for now.
func (s *Sky) Refresh(_ context.Context, now time.Time) (Fragment, error) {
	cond := openmeteo.Clear
	if s.weather != nil {
		cond = s.weather.Condition()
	}
	f := Fragment{Background: DrawSky(now, cond)}
	s.mu.Lock()
	s.current = f
	s.mu.Unlock()
	return f, nil
}

// Current returns the last drawn sky.
func (s *Sky) Current() Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// DrawSky renders the sky at now's local time of day.
func DrawSky(now time.Time, cond Condition) image.Image {
	tod := time.Duration(now.Hour())*time.Hour + time.Duration(now.Minute())*time.Minute
	top, bottom := SkyGradient(tod)
	tint, tinted := skyTints[cond]

	dc := gg.NewContext(render.Size, render.Size)
	for y := range render.Size {
		c := top.BlendRgb(bottom, float64(y)/float64(render.Size-1))
		if tinted {
			c = colorful.Color{R: c.R * tint.darken, G: c.G * tint.darken, B: c.B * tint.darken}.BlendRgb(tint.tint, 0.2)
		}
		dc.SetColor(c.Clamped())
		dc.DrawRectangle(0, float64(y), render.Size, 1)
		dc.Fill()
	}

	rng := skyRand(now, cond)
	hour := now.Hour()
	night := hour >= 19 || hour < 5
	minute := now.Hour()*60 + now.Minute()

	if night && (cond == openmeteo.Clear || cond == openmeteo.PartlyCloudy || cond == openmeteo.Cloudy) {
		drawStars(dc, rng)
	}
	if !night && (cond == openmeteo.Clear || cond == openmeteo.PartlyCloudy) {
		drawClouds(dc, rng, minute)
	}
	if hour >= 9 && hour < 17 && cond == openmeteo.Clear {
		drawSunlight(dc, rng)
	}
	switch cond {
	case openmeteo.Rain:
		drawRain(dc, rng)
	case openmeteo.Snow:
		drawSnow(dc, rng)
	case openmeteo.Thunder:
		drawRain(dc, rng)
		if rng.Float64() < 0.1 {
			dc.SetRGBA255(255, 255, 240, 153)
			dc.DrawRectangle(0, 0, render.Size, render.Size)
			dc.Fill()
		}
	}
	return dc.Image()
}

// skyRand seeds a generator from the minute and the condition.
func skyRand(now time.Time, cond Condition) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(cond))
	minute := uint64(now.Unix() / 60)
	return rand.New(rand.NewPCG(minute, h.Sum64()))
}

func drawStars(dc *gg.Context, rng *rand.Rand) {
	for range 25 {
		x, y := rng.IntN(render.Size), rng.IntN(render.Size)
		b := 40 + rng.IntN(216)
		dc.SetRGB255(b, b, b)
		dc.SetPixel(x, y)
		if b > 200 {
			dim := b / 3
			dc.SetRGB255(dim, dim, dim)
			for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nx, ny := x+d[0], y+d[1]
				if nx >= 0 && nx < render.Size && ny >= 0 && ny < render.Size {
					dc.SetPixel(nx, ny)
				}
			}
		}
	}
}

// drawClouds places two or three clouds that drift one pixel right per
// minute, wrapping around the frame.
func drawClouds(dc *gg.Context, rng *rand.Rand, minute int) {
	n := 2 + rng.IntN(2)
	for range n {
		x0 := rng.IntN(render.Size)
		y := float64(3 + rng.IntN(13))
		w := 12 + rng.IntN(9)
		h := 4 + rng.IntN(3)
		span := render.Size + w
		x := float64((x0+minute)%span - w/2)

		dc.SetRGB255(210, 215, 230)
		dc.DrawEllipse(x, y, float64(w)/2, float64(h)/2)
		dc.Fill()
		dc.SetRGB255(200, 205, 220)
		dc.DrawEllipse(x+float64(w)/24, y-float64(h)/12-0.5, float64(w)*7/24, float64(h)*5/12+0.5)
		dc.Fill()
	}
}

func drawSunlight(dc *gg.Context, rng *rand.Rand) {
	for range 6 {
		x, y := rng.IntN(render.Size), rng.IntN(render.Size/3)
		b := 80 + rng.IntN(176)
		if b > 180 {
			dc.SetRGB255(b, b, b-30)
			dc.SetPixel(x, y)
		}
	}
}

func drawRain(dc *gg.Context, rng *rand.Rand) {
	dc.SetRGB255(180, 200, 255)
	dc.SetLineWidth(1)
	for range 30 {
		x, y := float64(rng.IntN(render.Size)), float64(rng.IntN(render.Size))
		dc.DrawLine(x+0.5, y+0.5, x+1.5, y+3.5)
		dc.Stroke()
	}
}

func drawSnow(dc *gg.Context, rng *rand.Rand) {
	dc.SetRGB255(220, 225, 235)
	for range 20 {
		dc.SetPixel(rng.IntN(render.Size), rng.IntN(render.Size))
	}
}
