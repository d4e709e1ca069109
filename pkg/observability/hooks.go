// Package observability provides hooks for metrics and status reporting.
//
// Libraries emit events through globally registered hooks; the binary
// decides at startup who listens. The defaults are no-ops, so packages can
// call hooks unconditionally and tests need no setup.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    srv := status.New(...)
//	    observability.SetTickHooks(srv)
//	    observability.SetTransportHooks(srv)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Transport().OnStateChange(ctx, "connecting", "connected")
//
// State names are passed as strings to keep this package free of imports
// from the packages that report to it.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Tick Hooks
// =============================================================================

// TickHooks receives events from the render loop.
type TickHooks interface {
	// OnProviderRefresh records one provider refresh and its outcome.
	OnProviderRefresh(ctx context.Context, provider string, duration time.Duration, err error)

	// OnTickComplete records a finished tick. payloadSize is zero when no
	// payload was produced; err carries the reason a frame was dropped.
	OnTickComplete(ctx context.Context, due []string, payloadSize int, duration time.Duration, err error)

	// OnFrame receives every successfully encoded payload.
	OnFrame(ctx context.Context, payload []byte)
}

// =============================================================================
// Transport Hooks
// =============================================================================

// TransportHooks receives events from the device link.
type TransportHooks interface {
	// OnStateChange records a connection state transition.
	OnStateChange(ctx context.Context, from, to string)

	// OnConnected records a new link and its session id.
	OnConnected(ctx context.Context, device, sessionID string)

	// OnFrameSent records a fully acknowledged payload.
	OnFrameSent(ctx context.Context, size, chunks int, duration time.Duration)

	// OnFrameFailed records an abandoned payload.
	OnFrameFailed(ctx context.Context, size int, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTickHooks is a no-op implementation of TickHooks.
type NoopTickHooks struct{}

func (NoopTickHooks) OnProviderRefresh(context.Context, string, time.Duration, error)    {}
func (NoopTickHooks) OnTickComplete(context.Context, []string, int, time.Duration, error) {}
func (NoopTickHooks) OnFrame(context.Context, []byte)                                     {}

// NoopTransportHooks is a no-op implementation of TransportHooks.
type NoopTransportHooks struct{}

func (NoopTransportHooks) OnStateChange(context.Context, string, string)        {}
func (NoopTransportHooks) OnConnected(context.Context, string, string)          {}
func (NoopTransportHooks) OnFrameSent(context.Context, int, int, time.Duration) {}
func (NoopTransportHooks) OnFrameFailed(context.Context, int, error)            {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	tickHooks      TickHooks      = NoopTickHooks{}
	transportHooks TransportHooks = NoopTransportHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetTickHooks registers custom tick hooks.
// This should be called once at application startup before the loop starts.
func SetTickHooks(h TickHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		tickHooks = h
	}
}

// SetTransportHooks registers custom transport hooks.
func SetTransportHooks(h TransportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		transportHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Tick returns the registered tick hooks.
func Tick() TickHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return tickHooks
}

// Transport returns the registered transport hooks.
func Transport() TransportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return transportHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	tickHooks = NoopTickHooks{}
	transportHooks = NoopTransportHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
