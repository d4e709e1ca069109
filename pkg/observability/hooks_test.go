package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	tk := NoopTickHooks{}
	tk.OnProviderRefresh(ctx, "weather", time.Second, errors.New("offline"))
	tk.OnTickComplete(ctx, []string{"clock"}, 1024, time.Millisecond, nil)
	tk.OnFrame(ctx, []byte{0x89})

	tr := NoopTransportHooks{}
	tr.OnStateChange(ctx, "disconnected", "connecting")
	tr.OnConnected(ctx, "IDM-1234", "abc")
	tr.OnFrameSent(ctx, 9000, 3, time.Second)
	tr.OnFrameFailed(ctx, 9000, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "weather")
	c.OnCacheMiss(ctx, "weather")
	c.OnCacheSet(ctx, "weather", 128)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "api.open-meteo.com", "/v1/forecast")
	h.OnResponse(ctx, "GET", "api.open-meteo.com", "/v1/forecast", 200, time.Second)
	h.OnError(ctx, "GET", "api.open-meteo.com", "/v1/forecast", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Tick().(NoopTickHooks); !ok {
		t.Error("Tick() should return NoopTickHooks by default")
	}
	if _, ok := Transport().(NoopTransportHooks); !ok {
		t.Error("Transport() should return NoopTransportHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	rec := &recorder{}
	SetTickHooks(rec)
	SetTransportHooks(rec)
	if Tick() != rec || Transport() != rec {
		t.Error("Set*Hooks should register custom hooks")
	}

	Transport().OnStateChange(context.Background(), "connected", "transmitting")
	if rec.transitions != 1 {
		t.Errorf("transitions = %d, want 1", rec.transitions)
	}

	// nil is ignored
	SetTickHooks(nil)
	if Tick() != rec {
		t.Error("SetTickHooks(nil) should keep existing hooks")
	}

	Reset()
	if _, ok := Transport().(NoopTransportHooks); !ok {
		t.Error("Reset should restore NoopTransportHooks")
	}
}

type recorder struct {
	NoopTickHooks
	NoopTransportHooks
	transitions int
}

func (r *recorder) OnStateChange(context.Context, string, string) { r.transitions++ }
