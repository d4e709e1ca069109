package content

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pcerrors "github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/integrations/openmeteo"
)

type fakeForecaster struct {
	mu     sync.Mutex
	obs    openmeteo.Observation
	err    error
	block  bool
	stored *openmeteo.Observation
	calls  int
}

func (f *fakeForecaster) Forecast(ctx context.Context, _ openmeteo.Location, _ bool) (openmeteo.Observation, error) {
	f.mu.Lock()
	f.calls++
	obs, err, block := f.obs, f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return openmeteo.Observation{}, ctx.Err()
	}
	return obs, err
}

func (f *fakeForecaster) Last(context.Context, openmeteo.Location) (openmeteo.Observation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		return openmeteo.Observation{}, false
	}
	return *f.stored, true
}

func (f *fakeForecaster) set(obs openmeteo.Observation, err error) {
	f.mu.Lock()
	f.obs, f.err = obs, err
	f.mu.Unlock()
}

var rainy = openmeteo.Observation{
	Temperature: 3.4, Min: -1.2, Max: 7, Humidity: 45, Code: 61,
	Condition: openmeteo.Rain, FetchedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
}

func tempLine(f Fragment) string {
	for _, l := range f.Layers {
		if l.Name == "temperature" {
			return l.Text.String()
		}
	}
	return ""
}

func TestWeatherPlaceholder(t *testing.T) {
	w := NewWeather(&fakeForecaster{}, WeatherOptions{})
	if got := tempLine(w.Current()); got != Placeholder {
		t.Errorf("initial temperature = %q, want %q", got, Placeholder)
	}
	if w.Condition() != openmeteo.Clear {
		t.Errorf("initial condition = %s, want clear", w.Condition())
	}
}

func TestWeatherRefresh(t *testing.T) {
	fc := &fakeForecaster{obs: rainy}
	w := NewWeather(fc, WeatherOptions{})

	f, err := w.Refresh(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := tempLine(f); got != "3° -1°/7°" {
		t.Errorf("temperature = %q", got)
	}
	if len(f.Layers) != 2 || f.Layers[1].Sprite == nil {
		t.Fatalf("expected temperature and icon layers, got %+v", f.Layers)
	}
	if f.Layers[1].Place != IconPlace {
		t.Errorf("icon placement = %+v", f.Layers[1].Place)
	}
	if w.Condition() != openmeteo.Rain {
		t.Errorf("condition = %s", w.Condition())
	}
}

func TestWeatherFailureKeepsLastGood(t *testing.T) {
	fc := &fakeForecaster{obs: rainy}
	w := NewWeather(fc, WeatherOptions{})
	ctx := context.Background()

	if _, err := w.Refresh(ctx, time.Now()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	fc.set(openmeteo.Observation{}, errors.New("connection refused"))

	f, err := w.Refresh(ctx, time.Now())
	if err == nil {
		t.Fatal("expected refresh error")
	}
	if !pcerrors.Is(err, pcerrors.ErrCodeNetwork) {
		t.Errorf("error code = %s, want NETWORK_ERROR", pcerrors.GetCode(err))
	}
	if got := tempLine(f); got != "3° -1°/7°" {
		t.Errorf("returned fragment = %q, want last good", got)
	}
	if got := tempLine(w.Current()); got != "3° -1°/7°" {
		t.Errorf("Current = %q, want last good", got)
	}
}

func TestWeatherSeedsFromStore(t *testing.T) {
	stored := rainy
	stored.Temperature = 10
	fc := &fakeForecaster{err: errors.New("offline"), stored: &stored}
	w := NewWeather(fc, WeatherOptions{})

	f, err := w.Refresh(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected refresh error")
	}
	if got := tempLine(f); got != "10° -1°/7°" {
		t.Errorf("temperature = %q, want stored observation", got)
	}
	if obs, ok := w.Observation(); !ok || obs.Temperature != 10 {
		t.Errorf("Observation = %+v, %v", obs, ok)
	}
}

func TestWeatherTimeout(t *testing.T) {
	fc := &fakeForecaster{block: true}
	w := NewWeather(fc, WeatherOptions{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := w.Refresh(context.Background(), start)
	if !pcerrors.Is(err, pcerrors.ErrCodeTimeout) {
		t.Errorf("error = %v, want TIMEOUT", err)
	}
	if time.Since(start) > time.Second {
		t.Error("refresh not bounded by timeout")
	}
	if got := tempLine(w.Current()); got != Placeholder {
		t.Errorf("temperature = %q, want placeholder", got)
	}
}

func TestDegrees(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{3.4, "3°"},
		{3.6, "4°"},
		{-1.2, "-1°"},
		{-0.4, "0°"},
		{0, "0°"},
		{25, "25°"},
	}
	for _, tt := range tests {
		if got := Degrees(tt.v); got != tt.want {
			t.Errorf("Degrees(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
