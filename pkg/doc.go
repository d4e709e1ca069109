// Package pkg provides the core libraries for pixclock, a clock for 64×64
// Bluetooth LED pixel panels.
//
// # Overview
//
// Every second pixclock renders a frame from independent content providers,
// encodes it under the panel's transfer limit and streams it to the panel
// in acknowledged chunks. The pkg directory is organized into these areas:
//
//  1. [schedule] - Per-provider refresh intervals against an injected clock
//  2. [content] - Providers: clock, weather, background images, sky
//  3. [render] - Glyph sources, layers and the 64×64 compositor
//  4. [encode] - PNG encoding with a fixed degradation ladder
//  5. [transport] - BLE discovery, chunked transfer and reconnection
//  6. [pipeline] - The tick loop tying the stages together
//
// Supporting packages: [config], [cache], [integrations] (HTTP and
// Open-Meteo), [httputil], [errors], [observability], [status], [fonts]
// and [buildinfo].
//
// # Architecture
//
// The data flow through one tick:
//
//	schedule.Table.Tick(now)
//	         ↓
//	content.Provider.Refresh (concurrent, bounded by the tick budget)
//	         ↓
//	render.Compositor.Compose (background + layers → Frame)
//	         ↓
//	encode.Encoder.Encode (Frame → PNG ≤ limit)
//	         ↓
//	transport.Transport.Submit (latest pending payload)
//
// The transport runs its own loop and takes the latest payload whenever the
// link is idle. The two loops share nothing else.
//
// # Quick Start
//
//	cfg, _ := config.Load(path)
//	glyphs, _ := pipeline.Glyphs(cfg.Fonts)
//	link := transport.New(transport.NewBluetoothAdapter(), transport.Options{
//	    Prefixes: cfg.BLE.Prefixes(),
//	})
//	runner, _ := pipeline.New(table, providers, render.NewCompositor(glyphs),
//	    encode.New(cfg.Display.MaxPayload), link, pipeline.Options{})
//	go link.Run(ctx)
//	runner.Run(ctx)
package pkg
