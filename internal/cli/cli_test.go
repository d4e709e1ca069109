package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixclock/pkg/cache"
	"github.com/matzehuels/pixclock/pkg/config"
	"github.com/matzehuels/pixclock/pkg/content"
	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/pipeline"
	"github.com/matzehuels/pixclock/pkg/schedule"
	"github.com/matzehuels/pixclock/pkg/transport"
)

const forecastJSON = `{
  "current": {"temperature_2m": 3.4, "relative_humidity_2m": 45, "weather_code": 0},
  "daily": {"temperature_2m_min": [-1.2], "temperature_2m_max": [7.0]}
}`

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testConfig(t *testing.T, weatherURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Backend = config.CacheNone
	cfg.Background.Directory = t.TempDir()
	cfg.Weather.BaseURL = weatherURL
	cfg.Weather.Timeout = config.Duration{Duration: 2 * time.Second}
	return cfg
}

func TestBuildClockFallsBackToSky(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	clk, err := buildClock(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("buildClock: %v", err)
	}
	defer clk.Close()

	if !clk.dynamic {
		t.Error("empty background directory should select the sky")
	}
	if _, ok := clk.providers[0].(*content.Sky); !ok {
		t.Errorf("background provider = %T, want *content.Sky", clk.providers[0])
	}
	assertInterval(t, clk.table, content.BackgroundID, cfg.Background.DynamicInterval.Duration)
}

func TestBuildClockUsesImages(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	writeTestPNG(t, filepath.Join(cfg.Background.Directory, "cat.png"))

	clk, err := buildClock(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("buildClock: %v", err)
	}
	defer clk.Close()

	if clk.dynamic {
		t.Error("images present but sky selected")
	}
	if _, ok := clk.providers[0].(*content.Background); !ok {
		t.Errorf("background provider = %T", clk.providers[0])
	}
	assertInterval(t, clk.table, content.BackgroundID, cfg.Background.RotationInterval.Duration)
}

func TestBuildClockRendersFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(forecastJSON))
	}))
	defer server.Close()

	clk, err := buildClock(context.Background(), testConfig(t, server.URL), quietLogger())
	if err != nil {
		t.Fatalf("buildClock: %v", err)
	}
	defer clk.Close()

	runner, err := clk.runner(nil, pipeline.Options{Budget: 5 * time.Second})
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	res, err := runner.Tick(context.Background(), time.Date(2026, 10, 15, 21, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(res.Failed) != 0 || len(res.Pending) != 0 {
		t.Fatalf("failed %v pending %v", res.Failed, res.Pending)
	}
	if _, ok := clk.weather.Observation(); !ok {
		t.Error("weather not fetched")
	}
	if _, err := png.Decode(bytes.NewReader(res.Payload.Data)); err != nil {
		t.Errorf("payload is not a PNG: %v", err)
	}
}

func assertInterval(t *testing.T, table *schedule.Table, id schedule.ID, want time.Duration) {
	t.Helper()
	for _, e := range table.Entries() {
		if e.ID == id {
			if e.Interval != want {
				t.Errorf("%s interval = %v, want %v", id, e.Interval, want)
			}
			return
		}
	}
	t.Errorf("%s not scheduled", id)
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestNewCache(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Cache
		want string
	}{
		{"none", config.Cache{Backend: config.CacheNone}, "*cache.NullCache"},
		{"file", config.Cache{Backend: config.CacheFile, Dir: t.TempDir()}, "*cache.FileCache"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newCache(context.Background(), tt.cfg, quietLogger())
			if err != nil {
				t.Fatalf("newCache: %v", err)
			}
			defer c.Close()
			switch c.(type) {
			case *cache.NullCache:
				if tt.want != "*cache.NullCache" {
					t.Errorf("got NullCache, want %s", tt.want)
				}
			case *cache.FileCache:
				if tt.want != "*cache.FileCache" {
					t.Errorf("got FileCache, want %s", tt.want)
				}
			default:
				t.Errorf("unexpected backend %T", c)
			}
		})
	}
}

func TestNewCacheRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := newCache(ctx, config.Cache{Backend: config.CacheRedis, RedisAddr: "127.0.0.1:1"}, quietLogger())
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestHalfBlocks(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 4))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})

	out := halfBlocks(img)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for i, line := range lines {
		if n := strings.Count(line, upperHalf); n != 3 {
			t.Errorf("line %d has %d cells, want 3", i, n)
		}
	}
}

func TestHexColor(t *testing.T) {
	if got := hexColor(color.RGBA{255, 200, 100, 255}); got != "#ffc864" {
		t.Errorf("hexColor = %s", got)
	}
}

func TestDescribeResult(t *testing.T) {
	res := pipeline.Result{
		Due:    []schedule.ID{content.ClockID, content.WeatherID},
		Failed: map[schedule.ID]error{content.WeatherID: io.EOF},
	}
	res.Payload.Data = make([]byte, 4200)
	got := describeResult(res)
	for _, want := range []string{"refreshed clock,weather", "4200 bytes", "full colour", "failed weather"} {
		if !strings.Contains(got, want) {
			t.Errorf("%q missing %q", got, want)
		}
	}
}

type fakeAdapter struct {
	dev transport.Device
	err error
}

func (a fakeAdapter) Scan(ctx context.Context, prefixes []string) (transport.Device, error) {
	return a.dev, a.err
}

func (a fakeAdapter) Connect(context.Context, transport.Device) (transport.Link, error) {
	return nil, errors.New(errors.ErrCodeUnsupported, "fake adapter cannot connect")
}

func TestScan(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.configPath = filepath.Join(t.TempDir(), "missing.toml")
	ctx := withLogger(context.Background(), c.Logger)

	found := fakeAdapter{dev: transport.Device{Name: "IDM-0A1B", Address: "aa:bb"}}
	if err := c.scan(ctx, found, time.Second); err != nil {
		t.Errorf("scan: %v", err)
	}

	missing := fakeAdapter{err: errors.New(errors.ErrCodeDeviceNotFound, "no device")}
	if err := c.scan(ctx, missing, time.Second); !errors.Is(err, errors.ErrCodeDeviceNotFound) {
		t.Errorf("scan error = %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("[clock]\nformat_24h = true\n"), 0o644)

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "config"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config: %v", err)
	}
	var cfg config.Config
	if err := config.Decode(out.Bytes(), &cfg); err != nil {
		t.Fatalf("output is not a config: %v\n%s", err, out.String())
	}
	if !cfg.Clock.Format24h || cfg.BLE.DeviceNamePrefix != config.DefaultDevicePrefix {
		t.Errorf("effective config not printed: %+v", cfg.Clock)
	}
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "ab"), 0o755)
	os.WriteFile(filepath.Join(dir, "ab", "one.json"), []byte("{}"), 0o644)
	os.WriteFile(filepath.Join(dir, "two.json"), []byte("{}"), 0o644)

	n, err := clearDir(dir)
	if err != nil || n != 2 {
		t.Fatalf("clearDir = %d, %v", n, err)
	}
	if n, _ := clearDir(filepath.Join(dir, "missing")); n != 0 {
		t.Errorf("missing dir cleared %d", n)
	}
}

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "pixclock"},
		{"zsh", "#compdef pixclock"},
		{"fish", "complete -c pixclock"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			root := New(io.Discard, LogInfo).RootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", tt.shell})
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s: %v", tt.shell, err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output lacks %q", tt.want)
			}
		})
	}
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	stdout = &buf
	defer func() { stdout = os.Stdout }()

	printSuccess("Found %s", "IDM-0A1B")
	printKeyValue("Address", "aa:bb")
	printStats(4200, 2)

	out := buf.String()
	for _, want := range []string{"✓", "Found IDM-0A1B", "aa:bb", "4200 bytes · degraded level 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestNewRunPlanFailsBeforeStarting(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Status.Listen = "127.0.0.1:0"
	clk, err := buildClock(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("buildClock: %v", err)
	}
	defer clk.Close()

	// A provider without a schedule entry makes the runner reject the wiring.
	clk.providers = append(clk.providers, renamed{content.NewClock(content.ClockOptions{}), "extra"})

	plan, err := newRunPlan(clk, cfg, runOpts{}, fakeAdapter{}, quietLogger())
	if !errors.Is(err, errors.ErrCodeInvalidInput) || plan != nil {
		t.Fatalf("newRunPlan = %v, %v; want INVALID_INPUT", plan, err)
	}
}

func TestRunPlanStopsAndDrains(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Status.Listen = "127.0.0.1:0"
	clk, err := buildClock(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("buildClock: %v", err)
	}
	defer clk.Close()

	plan, err := newRunPlan(clk, cfg, runOpts{noBLE: true}, nil, quietLogger())
	if err != nil {
		t.Fatalf("newRunPlan: %v", err)
	}
	if plan.link != nil || plan.status == nil {
		t.Fatalf("plan link=%v status=%v", plan.link, plan.status)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := plan.run(ctx); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("run = %v, want deadline exceeded", err)
	}
	if err := plan.runner.Wait(context.Background()); err != nil {
		t.Errorf("refreshes left running: %v", err)
	}
}

// renamed reports a different provider id.
type renamed struct {
	content.Provider
	id schedule.ID
}

func (r renamed) ID() schedule.ID { return r.id }
