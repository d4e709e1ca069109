package openmeteo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/pixclock/pkg/cache"
	"github.com/matzehuels/pixclock/pkg/integrations"
)

// DefaultBaseURL is the public forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Location is a point on the globe in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// String formats the location as "lat,lon" with four decimals, which is
// also the cache key.
func (l Location) String() string {
	return strconv.FormatFloat(l.Latitude, 'f', 4, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', 4, 64)
}

// Observation is the weather at one location.
//
// Zero values: a zero Observation is not valid; check FetchedAt.
type Observation struct {
	Temperature float64   `json:"temperature"` // Current temperature, °C
	Min         float64   `json:"min"`         // Today's minimum, °C
	Max         float64   `json:"max"`         // Today's maximum, °C
	Humidity    int       `json:"humidity"`    // Relative humidity, %
	Code        int       `json:"code"`        // WMO weather code
	Condition   Condition `json:"condition"`   // Display category derived from Code
	FetchedAt   time.Time `json:"fetched_at"`  // When the observation was fetched
}

// Client provides access to the Open-Meteo forecast API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
	now     func() time.Time
}

// NewClient creates a client that persists observations in backend for
// cacheTTL. Requests time out after timeout (the package default when
// non-positive). A nil backend disables persistence.
func NewClient(backend cache.Cache, cacheTTL, timeout time.Duration) *Client {
	c := &Client{
		Client:  integrations.NewClient(backend, "openmeteo:", cacheTTL, map[string]string{"Accept": "application/json"}),
		baseURL: DefaultBaseURL,
		now:     time.Now,
	}
	c.SetHTTPClient(integrations.NewHTTPClientTimeout(timeout))
	return c
}

// WithBaseURL points the client at another endpoint. Empty keeps the default.
func (c *Client) WithBaseURL(u string) *Client {
	if u != "" {
		c.baseURL = u
	}
	return c
}

// Forecast returns the current observation for loc.
//
// If refresh is false and a stored observation exists, it is returned
// without a request. Otherwise the API is called (with retries for transient
// failures) and the result is stored.
//
// Returns:
//   - [integrations.ErrNetwork] for HTTP failures or malformed responses
//   - [integrations.ErrNotFound] if the endpoint does not exist
func (c *Client) Forecast(ctx context.Context, loc Location, refresh bool) (Observation, error) {
	var obs Observation
	err := c.Cached(ctx, loc.String(), refresh, &obs, func() error {
		return c.fetch(ctx, loc, &obs)
	})
	return obs, err
}

// Last returns the most recently stored observation for loc, if any.
func (c *Client) Last(ctx context.Context, loc Location) (Observation, bool) {
	var obs Observation
	ok, _ := c.Load(ctx, loc.String(), &obs)
	return obs, ok && !obs.FetchedAt.IsZero()
}

func (c *Client) fetch(ctx context.Context, loc Location, obs *Observation) error {
	var resp apiResponse
	if err := c.Get(ctx, c.requestURL(loc), &resp); err != nil {
		return err
	}
	parsed, err := resp.observation()
	if err != nil {
		return err
	}
	parsed.FetchedAt = c.now()
	*obs = parsed
	return nil
}

func (c *Client) requestURL(loc Location) string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code")
	q.Set("daily", "temperature_2m_min,temperature_2m_max")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "1")
	return c.baseURL + "?" + q.Encode()
}

type apiResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WeatherCode *int     `json:"weather_code"`
	} `json:"current"`
	Daily *struct {
		Min []float64 `json:"temperature_2m_min"`
		Max []float64 `json:"temperature_2m_max"`
	} `json:"daily"`
}

func (r apiResponse) observation() (Observation, error) {
	cur := r.Current
	if cur == nil || cur.Temperature == nil || cur.WeatherCode == nil {
		return Observation{}, fmt.Errorf("%w: response has no current conditions", integrations.ErrNetwork)
	}
	if r.Daily == nil || len(r.Daily.Min) == 0 || len(r.Daily.Max) == 0 {
		return Observation{}, fmt.Errorf("%w: response has no daily range", integrations.ErrNetwork)
	}
	obs := Observation{
		Temperature: *cur.Temperature,
		Min:         r.Daily.Min[0],
		Max:         r.Daily.Max[0],
		Code:        *cur.WeatherCode,
		Condition:   ConditionFor(*cur.WeatherCode),
	}
	if cur.Humidity != nil {
		obs.Humidity = int(*cur.Humidity + 0.5)
	}
	return obs, nil
}
