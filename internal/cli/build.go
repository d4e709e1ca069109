package cli

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixclock/pkg/cache"
	"github.com/matzehuels/pixclock/pkg/config"
	"github.com/matzehuels/pixclock/pkg/content"
	"github.com/matzehuels/pixclock/pkg/encode"
	"github.com/matzehuels/pixclock/pkg/integrations/openmeteo"
	"github.com/matzehuels/pixclock/pkg/pipeline"
	"github.com/matzehuels/pixclock/pkg/render"
	"github.com/matzehuels/pixclock/pkg/schedule"
)

// clock is everything the render loop needs, minus the sink.
type clock struct {
	cache     cache.Cache
	weather   *content.Weather
	providers []content.Provider
	table     *schedule.Table
	comp      *render.Compositor
	enc       *encode.Encoder
	dynamic   bool
}

func (k *clock) Close() error { return k.cache.Close() }

// runner wires a pipeline runner delivering to sink (which may be nil).
func (k *clock) runner(sink pipeline.Sink, opts pipeline.Options) (*pipeline.Runner, error) {
	return pipeline.New(k.table, k.providers, k.comp, k.enc, sink, opts)
}

// buildClock assembles providers, schedule, compositor and encoder from cfg.
//
// The background slot holds the image rotation when the directory has
// usable images and the dynamic sky otherwise; both use the same id.
func buildClock(ctx context.Context, cfg config.Config, logger *log.Logger) (*clock, error) {
	backend, err := newCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	om := openmeteo.NewClient(backend, cfg.Cache.TTL.Duration, cfg.Weather.Timeout.Duration).
		WithBaseURL(cfg.Weather.BaseURL)
	weather := content.NewWeather(om, content.WeatherOptions{
		Location: openmeteo.Location{Latitude: cfg.Weather.Latitude, Longitude: cfg.Weather.Longitude},
		Timeout:  cfg.Weather.Timeout.Duration,
		Logger:   logger.WithPrefix("weather"),
	})
	clk := content.NewClock(content.ClockOptions{
		Format24h:   cfg.Clock.Format24h,
		ShowSeconds: cfg.Clock.ShowSeconds,
		BlinkColon:  cfg.Clock.BlinkColon,
		DateFormat:  cfg.Clock.DateFormat,
	})

	var (
		bg         content.Provider
		bgInterval = cfg.Background.RotationInterval.Duration
		dynamic    bool
	)
	images := content.NewBackground(content.BackgroundOptions{
		Dir:        cfg.Background.Directory,
		Brightness: cfg.Background.Brightness,
		Logger:     logger.WithPrefix("background"),
	})
	n, err := images.Load()
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	if n > 0 {
		logger.Info("background images loaded", "count", n, "dir", cfg.Background.Directory)
		bg = images
	} else {
		logger.Info("no background images, drawing the sky", "dir", cfg.Background.Directory)
		bg = content.NewSky(weather)
		bgInterval = cfg.Background.DynamicInterval.Duration
		dynamic = true
	}

	table, err := schedule.New(
		schedule.Entry{ID: content.ClockID, Interval: cfg.Display.Tick.Duration},
		schedule.Entry{ID: content.WeatherID, Interval: cfg.Weather.UpdateInterval.Duration},
		schedule.Entry{ID: content.BackgroundID, Interval: bgInterval},
	)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	glyphs, err := pipeline.Glyphs(cfg.Fonts)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	return &clock{
		cache:     backend,
		weather:   weather,
		providers: []content.Provider{bg, clk, weather},
		table:     table,
		comp:      render.NewCompositor(glyphs),
		enc:       encode.New(cfg.Display.MaxPayload),
		dynamic:   dynamic,
	}, nil
}
