package pipeline

import (
	"context"
	stderrors "errors"
	"image"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pixclock/pkg/content"
	"github.com/matzehuels/pixclock/pkg/encode"
	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/observability"
	"github.com/matzehuels/pixclock/pkg/render"
	"github.com/matzehuels/pixclock/pkg/schedule"
)

// Runner drives the render loop.
//
// Tick and Run must be called from one goroutine; the compositor is not
// safe for concurrent use. Last may be called from anywhere.
type Runner struct {
	table     *schedule.Table
	providers []content.Provider
	byID      map[schedule.ID]content.Provider
	comp      *render.Compositor
	enc       *encode.Encoder
	sink      Sink
	opts      Options
	logger    *log.Logger

	mu       sync.Mutex
	inflight map[schedule.ID]chan struct{}
	last     Result
}

// New wires a runner. Every table entry must name one of the providers and
// every provider must have a table entry. A nil sink renders without
// delivering anything.
//
// Providers keep their given order: the first one with a background image
// supplies the background, and foreground layers are stacked in provider
// order within each z-order class.
func New(table *schedule.Table, providers []content.Provider, comp *render.Compositor, enc *encode.Encoder, sink Sink, opts Options) (*Runner, error) {
	opts.setDefaults()
	if table == nil || comp == nil || enc == nil {
		return nil, errors.New(errors.ErrCodeInternal, "pipeline needs a schedule, compositor and encoder")
	}

	byID := make(map[schedule.ID]content.Provider, len(providers))
	for _, p := range providers {
		if _, dup := byID[p.ID()]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "provider %q registered twice", p.ID())
		}
		byID[p.ID()] = p
	}
	ids := table.IDs()
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, errors.New(errors.ErrCodeUnknownProvider, "schedule entry %q has no provider", id)
		}
	}
	for id := range byID {
		if !slices.Contains(ids, id) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "provider %q has no schedule entry", id)
		}
	}

	return &Runner{
		table:     table,
		providers: providers,
		byID:      byID,
		comp:      comp,
		enc:       enc,
		sink:      sink,
		opts:      opts,
		logger:    opts.Logger,
		inflight:  make(map[schedule.ID]chan struct{}),
	}, nil
}

// Run ticks at the configured cadence until ctx is cancelled or a tick
// fails fatally. The first tick runs immediately.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.Tick)
	defer ticker.Stop()

	g := newGrid(r.opts.Now(), r.opts.Tick)
	for {
		if _, err := r.Tick(ctx, g.next(r.opts.Now())); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// grid snaps wall-clock samples onto origin + k*step. Ticker delivery
// jitters by microseconds either way; on the grid two consecutive ticks are
// always a whole number of steps apart, so an entry whose interval equals
// the tick is due on every tick.
type grid struct {
	origin time.Time
	step   time.Duration
	k      int64
}

func newGrid(start time.Time, step time.Duration) *grid {
	return &grid{origin: start.Truncate(step), step: step, k: -1}
}

// next returns the grid point at or below now, always past the previous one.
func (g *grid) next(now time.Time) time.Time {
	k := max(int64(now.Sub(g.origin)/g.step), g.k+1)
	g.k = k
	return g.origin.Add(time.Duration(k) * g.step)
}

// Tick runs one pass of the loop at now. The returned error is non-nil only
// for fatal conditions; everything else is reported in the Result.
func (r *Runner) Tick(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()
	res := Result{Due: r.table.Tick(now)}
	dueNames := make([]string, len(res.Due))
	for i, id := range res.Due {
		dueNames[i] = string(id)
	}

	fail := func(err error) (Result, error) {
		observability.Tick().OnTickComplete(ctx, dueNames, 0, time.Since(start), err)
		return res, err
	}

	if err := r.refresh(ctx, now, &res); err != nil {
		return fail(err)
	}

	frame, err := r.Compose()
	if err != nil {
		return fail(err)
	}
	res.Frame = frame

	payload, err := r.enc.Encode(frame)
	if err != nil {
		if !stderrors.Is(err, encode.ErrTooLarge) {
			return fail(errors.Wrap(errors.ErrCodeInternal, err, "encode frame"))
		}
		r.logger.Warn("frame dropped", "err", errors.UserMessage(err))
		res.Dropped = true
		r.setLast(res)
		observability.Tick().OnTickComplete(ctx, dueNames, 0, time.Since(start), err)
		return res, nil
	}
	res.Payload = payload
	observability.Tick().OnFrame(ctx, payload.Data)

	var dropped error
	if r.sink != nil {
		if r.sink.Accepting() {
			res.Submitted = r.sink.Submit(payload.Data)
		}
		if !res.Submitted {
			res.Dropped = true
			dropped = errors.New(errors.ErrCodeLinkLost, "display not connected")
		}
	}
	r.setLast(res)

	r.logger.Debug("tick",
		"due", dueNames,
		"bytes", payload.Len(),
		"level", payload.Level,
		"submitted", res.Submitted,
		"duration", time.Since(start))
	observability.Tick().OnTickComplete(ctx, dueNames, payload.Len(), time.Since(start), dropped)
	return res, nil
}

// refresh starts every due provider and waits until they finish or the
// budget runs out.
func (r *Runner) refresh(ctx context.Context, now time.Time, res *Result) error {
	if len(res.Due) == 0 {
		return nil
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		started []schedule.ID
		done    = map[schedule.ID]bool{}
		failed  = map[schedule.ID]error{}
	)

	for _, id := range res.Due {
		p, ok := r.byID[id]
		if !ok {
			return errors.New(errors.ErrCodeUnknownProvider, "provider %q is not registered", id)
		}
		finished, ok := r.begin(id)
		if !ok {
			r.logger.Debug("refresh still running, skipping", "provider", id)
			res.Pending = append(res.Pending, id)
			continue
		}
		started = append(started, id)

		g.Go(func() error {
			defer close(finished)
			defer r.end(id)

			t0 := time.Now()
			_, err := p.Refresh(ctx, now)
			observability.Tick().OnProviderRefresh(ctx, string(id), time.Since(t0), err)
			if err != nil {
				r.logger.Warn("refresh failed, keeping previous content", "provider", id, "err", errors.UserMessage(err))
			}

			mu.Lock()
			defer mu.Unlock()
			done[id] = true
			if err != nil {
				failed[id] = err
			}
			return nil
		})
	}

	waited := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(waited)
	}()

	timer := time.NewTimer(r.opts.Budget)
	defer timer.Stop()
	select {
	case <-waited:
	case <-timer.C:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	for _, id := range started {
		if !done[id] {
			r.logger.Debug("refresh over budget, composing with previous content", "provider", id)
			res.Pending = append(res.Pending, id)
		}
	}
	if len(failed) > 0 {
		res.Failed = maps.Clone(failed)
	}
	return nil
}

// begin marks id in flight. It reports false if a refresh is already running.
func (r *Runner) begin(id schedule.ID) (chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[id]; busy {
		return nil, false
	}
	ch := make(chan struct{})
	r.inflight[id] = ch
	return ch, true
}

func (r *Runner) end(id schedule.ID) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}

// Wait blocks until every background refresh has returned or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	chans := make([]chan struct{}, 0, len(r.inflight))
	for _, ch := range r.inflight {
		chans = append(chans, ch)
	}
	r.mu.Unlock()

	for _, ch := range chans {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Compose layers the current fragment of every provider into a frame.
func (r *Runner) Compose() (*render.Frame, error) {
	var (
		bg     image.Image
		layers []render.Layer
	)
	for _, p := range r.providers {
		f := p.Current()
		if bg == nil && f.Background != nil {
			bg = f.Background
		}
		layers = append(layers, f.Layers...)
	}
	frame, err := r.comp.Compose(bg, layers)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "compose frame")
	}
	return frame, nil
}

// Last returns the result of the most recent completed tick.
func (r *Runner) Last() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) setLast(res Result) {
	r.mu.Lock()
	r.last = res
	r.mu.Unlock()
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
