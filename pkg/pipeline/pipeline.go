// Package pipeline runs the render loop: schedule, refresh, compose, encode
// and hand off to the transport.
//
// # Architecture
//
// Every tick goes through four stages:
//
//  1. Schedule: the [schedule.Table] names the providers due at this tick
//  2. Refresh: due providers refresh concurrently; failures are logged and
//     the provider keeps showing its last good content
//  3. Compose: the current fragment of every provider is layered into one
//     [render.Frame]
//  4. Encode: the frame is encoded under the payload limit and submitted to
//     the [Sink] as the latest pending payload, or dropped when the sink is
//     disconnected
//
// The refresh stage waits at most [Options.Budget]. A provider still
// working when the budget runs out keeps running in the background; the
// tick composes with its previous content, and the provider is not
// refreshed again until the slow call returns.
//
// # Usage
//
//	runner, err := pipeline.New(table, providers, compositor, encoder, sink, pipeline.Options{
//	    Logger: logger,
//	})
//	if err != nil {
//	    return err
//	}
//	err = runner.Run(ctx) // returns on cancellation or a fatal error
//
// # Errors
//
// Provider failures and oversized frames never stop the loop. An unknown
// provider id or a compositor failure is a programming error; Tick returns
// it and Run stops.
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixclock/pkg/encode"
	"github.com/matzehuels/pixclock/pkg/render"
	"github.com/matzehuels/pixclock/pkg/schedule"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultTick is the render cadence.
	DefaultTick = time.Second

	// DefaultBudgetRatio is the share of the tick the refresh stage may use.
	DefaultBudgetRatio = 0.5
)

// Sink receives encoded payloads. [transport.Transport] implements it.
type Sink interface {
	// Accepting reports whether the sink is not disconnected.
	Accepting() bool
	// Submit stores payload as the latest pending one.
	Submit(payload []byte) bool
}

// Options configures a Runner.
type Options struct {
	// Tick is the render cadence. Defaults to DefaultTick.
	Tick time.Duration

	// Budget bounds the refresh stage of a tick. Defaults to half the tick.
	Budget time.Duration

	// Now returns the wall-clock time. Defaults to time.Now.
	Now func() time.Time

	// Logger receives loop diagnostics. Defaults to a discard logger.
	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.Tick <= 0 {
		o.Tick = DefaultTick
	}
	if o.Budget <= 0 {
		o.Budget = time.Duration(float64(o.Tick) * DefaultBudgetRatio)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
}

// Result describes one tick.
type Result struct {
	// Due lists the providers the schedule selected.
	Due []schedule.ID

	// Pending lists due providers whose refresh was still running when the
	// budget expired, or that were skipped because an earlier refresh had
	// not returned.
	Pending []schedule.ID

	// Failed maps providers whose refresh failed to the error.
	Failed map[schedule.ID]error

	Frame   *render.Frame
	Payload encode.Payload

	// Submitted is true when the payload was handed to the sink.
	Submitted bool

	// Dropped is true when the frame was not delivered: either it could not
	// be encoded under the limit or the sink was disconnected.
	Dropped bool
}
