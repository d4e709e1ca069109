// Package content provides the data sources drawn on the display.
//
// Each source is a [Provider]. The render loop calls [Provider.Refresh] when
// the schedule says the provider is due and [Provider.Current] on every
// tick. A provider whose refresh fails keeps returning the last fragment it
// produced successfully, so a network outage leaves the previous weather on
// screen rather than a blank corner.
//
// Providers:
//
//   - [Clock]: time and date text, a pure function of the wall clock
//   - [Weather]: temperature line and condition icon from Open-Meteo
//   - [Background]: rotating images from a directory
//   - [Sky]: a drawn time-of-day sky, used when there are no images
//
// Providers are safe for concurrent use: a refresh may still be running in
// the background while the loop reads Current.
package content

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixclock/pkg/render"
	"github.com/matzehuels/pixclock/pkg/schedule"
)

// Provider ids used in the schedule table.
const (
	ClockID      schedule.ID = "clock"
	WeatherID    schedule.ID = "weather"
	BackgroundID schedule.ID = "background"
)

// Fragment is a provider's contribution to a frame. Background providers
// set Background; foreground providers set Layers.
type Fragment struct {
	Background image.Image
	Layers     []render.Layer
}

// Empty reports whether the fragment contributes nothing.
func (f Fragment) Empty() bool {
	return f.Background == nil && len(f.Layers) == 0
}

// Provider is a source of frame content.
type Provider interface {
	// ID returns the provider's schedule id.
	ID() schedule.ID

	// Refresh recomputes the fragment for now. On failure it returns the
	// previous fragment together with the error.
	Refresh(ctx context.Context, now time.Time) (Fragment, error)

	// Current returns the most recent good fragment.
	Current() Fragment
}

// Conditioner reports the current weather category. [Sky] uses it to tint
// and decorate the sky.
type Conditioner interface {
	Condition() Condition
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
