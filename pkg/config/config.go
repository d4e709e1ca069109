// Package config loads the pixclock configuration file.
//
// Configuration is read once at startup from a TOML file, merged over the
// built-in defaults and validated. Every other package receives plain values
// from the returned [Config]; nothing re-reads the file at runtime.
//
// # File Location
//
// The default path follows the XDG convention:
//
//	$XDG_CONFIG_HOME/pixclock/config.toml   (or ~/.config/pixclock/config.toml)
//
// A missing file is not an error; the defaults are used as-is.
//
// # Example
//
//	[ble]
//	device_name_prefix = "IDM-"
//	reconnect_interval = "10s"
//
//	[weather]
//	latitude = 37.5665
//	longitude = 126.9780
//	update_interval = "30m"
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pixclock/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories.
	appName = "pixclock"

	// DefaultDevicePrefix is the advertised name prefix of iDotMatrix panels.
	DefaultDevicePrefix = "IDM-"

	// DefaultTick is the render cadence.
	DefaultTick = time.Second

	// DefaultMaxPayload is the largest encoded frame the panel accepts in
	// one transfer.
	DefaultMaxPayload = 12 * 1024

	// DefaultWeatherURL is the Open-Meteo forecast endpoint.
	DefaultWeatherURL = "https://api.open-meteo.com/v1/forecast"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// =============================================================================
// Types
// =============================================================================

// Duration is a time.Duration that decodes from strings such as "10s" or "30m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete pixclock configuration.
type Config struct {
	BLE        BLE        `toml:"ble"`
	Display    Display    `toml:"display"`
	Clock      Clock      `toml:"clock"`
	Weather    Weather    `toml:"weather"`
	Background Background `toml:"background"`
	Cache      Cache      `toml:"cache"`
	Status     Status     `toml:"status"`
	Fonts      Fonts      `toml:"fonts"`
}

// BLE configures discovery and the transfer protocol.
type BLE struct {
	DeviceNamePrefix  string   `toml:"device_name_prefix"`
	ExtraPrefixes     []string `toml:"extra_prefixes"`
	ReconnectInterval Duration `toml:"reconnect_interval"`
	ScanTimeout       Duration `toml:"scan_timeout"`
	AckTimeout        Duration `toml:"ack_timeout"`
}

// Display configures the panel and the render cadence.
type Display struct {
	Brightness int `toml:"brightness"`
	// Orientation is accepted and passed through; no rotation is applied.
	Orientation int      `toml:"orientation"`
	Tick        Duration `toml:"tick"`
	MaxPayload  int      `toml:"max_payload"`
	// PowerOffOnExit switches the panel off when pixclock shuts down.
	PowerOffOnExit bool `toml:"power_off_on_exit"`
}

// Clock configures the time and date text.
type Clock struct {
	Format24h   bool   `toml:"format_24h"`
	ShowSeconds bool   `toml:"show_seconds"`
	BlinkColon  bool   `toml:"blink_colon"`
	DateFormat  string `toml:"date_format"`
}

// Weather configures the weather provider.
type Weather struct {
	Latitude       float64  `toml:"latitude"`
	Longitude      float64  `toml:"longitude"`
	UpdateInterval Duration `toml:"update_interval"`
	Timeout        Duration `toml:"timeout"`
	BaseURL        string   `toml:"base_url"`
}

// Background configures the background layer.
type Background struct {
	Directory        string   `toml:"directory"`
	RotationInterval Duration `toml:"rotation_interval"`
	DynamicInterval  Duration `toml:"dynamic_interval"`
	Brightness       float64  `toml:"brightness"`
}

// Cache configures persistence of the last good weather observation.
type Cache struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

// Status configures the optional HTTP status endpoint.
type Status struct {
	Listen string `toml:"listen"`
}

// Fonts holds optional TTF overrides for the built-in faces.
type Fonts struct {
	Regular string `toml:"regular"`
	Bold    string `toml:"bold"`
	Small   string `toml:"small"`
	Hangul  string `toml:"hangul"`
}

// =============================================================================
// Defaults
// =============================================================================

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BLE: BLE{
			DeviceNamePrefix:  DefaultDevicePrefix,
			ExtraPrefixes:     []string{"LED_BLE_"},
			ReconnectInterval: Duration{10 * time.Second},
			ScanTimeout:       Duration{10 * time.Second},
			AckTimeout:        Duration{8 * time.Second},
		},
		Display: Display{
			Brightness: 50,
			Tick:       Duration{DefaultTick},
			MaxPayload: DefaultMaxPayload,
		},
		Clock: Clock{
			BlinkColon: true,
			DateFormat: "MM/DD ddd",
		},
		Weather: Weather{
			Latitude:       37.5665,
			Longitude:      126.9780,
			UpdateInterval: Duration{30 * time.Minute},
			Timeout:        Duration{10 * time.Second},
			BaseURL:        DefaultWeatherURL,
		},
		Background: Background{
			Directory:        "assets/backgrounds",
			RotationInterval: Duration{10 * time.Minute},
			DynamicInterval:  Duration{time.Minute},
			Brightness:       0.5,
		},
		Cache: Cache{
			Backend: CacheFile,
			TTL:     Duration{6 * time.Hour},
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// DefaultPath returns the XDG config path (~/.config/pixclock/config.toml).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DefaultCacheDir returns the XDG cache directory (~/.cache/pixclock/).
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads path over the defaults and validates the result.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	if err := Decode(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	return cfg, cfg.Validate()
}

// Decode decodes TOML data into cfg. Keys absent from data keep the values
// already present in cfg, which gives a deep merge over the defaults.
func Decode(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks every field and returns the first INVALID_CONFIG error.
func (c Config) Validate() error {
	if err := errors.ValidateDeviceNamePrefix(c.BLE.DeviceNamePrefix); err != nil {
		return err
	}
	for _, p := range c.BLE.ExtraPrefixes {
		if err := errors.ValidateDeviceNamePrefix(p); err != nil {
			return err
		}
	}
	if err := positive("ble.reconnect_interval", c.BLE.ReconnectInterval); err != nil {
		return err
	}
	if err := positive("ble.scan_timeout", c.BLE.ScanTimeout); err != nil {
		return err
	}
	if err := positive("ble.ack_timeout", c.BLE.AckTimeout); err != nil {
		return err
	}
	if err := errors.ValidateRange("display.brightness", float64(c.Display.Brightness), 0, 100); err != nil {
		return err
	}
	switch c.Display.Orientation {
	case 0, 90, 180, 270:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "display.orientation must be 0, 90, 180 or 270, got %d", c.Display.Orientation)
	}
	if err := positive("display.tick", c.Display.Tick); err != nil {
		return err
	}
	if c.Display.MaxPayload <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "display.max_payload must be positive")
	}
	if c.Clock.DateFormat == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "clock.date_format cannot be empty")
	}
	if err := errors.ValidateRange("weather.latitude", c.Weather.Latitude, -90, 90); err != nil {
		return err
	}
	if err := errors.ValidateRange("weather.longitude", c.Weather.Longitude, -180, 180); err != nil {
		return err
	}
	if err := positive("weather.update_interval", c.Weather.UpdateInterval); err != nil {
		return err
	}
	if err := positive("weather.timeout", c.Weather.Timeout); err != nil {
		return err
	}
	if err := errors.ValidateURL(c.Weather.BaseURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "weather.base_url")
	}
	if err := positive("background.rotation_interval", c.Background.RotationInterval); err != nil {
		return err
	}
	if err := positive("background.dynamic_interval", c.Background.DynamicInterval); err != nil {
		return err
	}
	if err := errors.ValidateRange("background.brightness", c.Background.Brightness, 0, 1); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend must be one of: file, redis, none (got %q)", c.Cache.Backend)
	}
	return errors.ValidateListenAddr(c.Status.Listen)
}

// Prefixes returns every accepted device name prefix, primary first.
func (b BLE) Prefixes() []string {
	return append([]string{b.DeviceNamePrefix}, b.ExtraPrefixes...)
}

func positive(field string, d Duration) error {
	if d.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "%s must be positive", field)
	}
	return nil
}
