package content

import (
	"context"
	"image/color"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/integrations/openmeteo"
	"github.com/matzehuels/pixclock/pkg/render"
	"github.com/matzehuels/pixclock/pkg/schedule"
)

// Condition is the display category of the current weather.
type Condition = openmeteo.Condition

// Weather text colours.
var (
	CurrentTempColor = color.RGBA{255, 200, 100, 255}
	RangeTempColor   = color.RGBA{190, 190, 200, 255}
)

// Weather layout.
var (
	IconPlace = render.At(render.BottomRight, 1, 10)
	TempPlace = render.At(render.BottomRight, 1, 1)
)

// IconScale is the integer scale of the condition sprite.
const IconScale = 2

// Placeholder is shown in place of the temperature before the first
// successful fetch.
const Placeholder = "--°"

// Forecaster fetches observations. [openmeteo.Client] implements it.
type Forecaster interface {
	Forecast(ctx context.Context, loc openmeteo.Location, refresh bool) (openmeteo.Observation, error)
	Last(ctx context.Context, loc openmeteo.Location) (openmeteo.Observation, bool)
}

// WeatherOptions configures the weather provider.
type WeatherOptions struct {
	Location openmeteo.Location
	Timeout  time.Duration // per refresh; 0 means 10s
	Logger   *log.Logger
}

// Weather shows the current temperature, today's range and a condition
// icon. It keeps the last good observation when a fetch fails.
type Weather struct {
	client Forecaster
	opts   WeatherOptions
	logger *log.Logger

	mu      sync.RWMutex
	obs     openmeteo.Observation
	have    bool
	seeded  bool
	current Fragment
}

var (
	_ Provider    = (*Weather)(nil)
	_ Conditioner = (*Weather)(nil)
)

// NewWeather returns a weather provider backed by client.
func NewWeather(client Forecaster, opts WeatherOptions) *Weather {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	return &Weather{
		client:  client,
		opts:    opts,
		logger:  logger,
		current: placeholderFragment(),
	}
}

func (w *Weather) ID() schedule.ID { return WeatherID }

// Refresh fetches a new observation. On the first call a stored
// observation from a previous run is shown if the fetch fails.
func (w *Weather) Refresh(ctx context.Context, _ time.Time) (Fragment, error) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	obs, err := w.client.Forecast(ctx, w.opts.Location, true)
	if err != nil {
		w.seed(ctx)
		code := errors.ErrCodeNetwork
		if ctx.Err() != nil {
			code = errors.ErrCodeTimeout
		}
		return w.Current(), errors.Wrap(code, err, "weather at %s", w.opts.Location)
	}

	f := weatherFragment(obs)
	w.mu.Lock()
	w.obs, w.have, w.seeded = obs, true, true
	w.current = f
	w.mu.Unlock()
	w.logger.Debug("weather updated", "temp", obs.Temperature, "condition", obs.Condition)
	return f, nil
}

// seed loads the stored observation once, if nothing better is on screen.
func (w *Weather) seed(ctx context.Context) {
	w.mu.RLock()
	done := w.seeded || w.have
	w.mu.RUnlock()
	if done {
		return
	}
	obs, ok := w.client.Last(context.WithoutCancel(ctx), w.opts.Location)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.seeded = true
	if ok && !w.have {
		w.obs, w.have = obs, true
		w.current = weatherFragment(obs)
		w.logger.Info("showing stored weather", "fetched_at", obs.FetchedAt.Format(time.RFC3339))
	}
}

// Current returns the last good weather fragment, or the placeholder.
func (w *Weather) Current() Fragment {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Observation returns the last good observation.
func (w *Weather) Observation() (openmeteo.Observation, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.obs, w.have
}

// Condition returns the current category, or Clear when unknown.
func (w *Weather) Condition() Condition {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.have {
		return openmeteo.Clear
	}
	return w.obs.Condition
}

// TempText returns the temperature line, e.g. "3° -1°/7°".
func TempText(obs openmeteo.Observation) render.Text {
	return render.Text{Spans: []render.Span{
		{Text: Degrees(obs.Temperature) + " ", Color: CurrentTempColor, Style: render.StyleSmall},
		{Text: Degrees(obs.Min) + "/" + Degrees(obs.Max), Color: RangeTempColor, Style: render.StyleSmall},
	}}
}

// Degrees formats a temperature rounded to whole degrees.
func Degrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	if s == "-0" {
		s = "0"
	}
	return s + "°"
}

func weatherFragment(obs openmeteo.Observation) Fragment {
	layers := []render.Layer{render.TextLayer("temperature", TempPlace, TempText(obs))}
	if sprite, ok := render.Icons[string(obs.Condition)]; ok {
		layers = append(layers, render.IconLayer("condition", IconPlace, sprite, IconScale))
	}
	return Fragment{Layers: layers}
}

func placeholderFragment() Fragment {
	return Fragment{Layers: []render.Layer{
		render.TextLayer("temperature", TempPlace, render.Plain(Placeholder, RangeTempColor, render.StyleSmall)),
	}}
}
