// Package integrations provides HTTP clients for the upstream data APIs that
// feed the display.
//
// # Overview
//
// Each upstream has its own subpackage:
//
//   - [openmeteo]: current conditions and the daily range from Open-Meteo
//
// # Client Pattern
//
// Upstream clients embed the shared [Client] and follow one pattern:
//
//	client := openmeteo.NewClient(backend, 6*time.Hour, 10*time.Second)
//	obs, err := client.Forecast(ctx, loc, true) // true = bypass cache
//
// The shared client handles:
//   - HTTP requests with retry and exponential backoff ([httputil.Retry])
//   - Response persistence through a [cache.Cache] with a per-client prefix
//   - A User-Agent identifying the build
//   - Observability hooks for requests and cache traffic
//
// # Errors
//
// Failures are reported as [ErrNotFound] or [ErrNetwork]. Transient failures
// (connection errors, 429 and 5xx responses) are wrapped in
// [httputil.RetryableError] so that [Client.Cached] retries them.
//
// [openmeteo]: github.com/matzehuels/pixclock/pkg/integrations/openmeteo
// [httputil.Retry]: github.com/matzehuels/pixclock/pkg/httputil.Retry
// [httputil.RetryableError]: github.com/matzehuels/pixclock/pkg/httputil.RetryableError
// [cache.Cache]: github.com/matzehuels/pixclock/pkg/cache.Cache
package integrations
