// Package transport streams encoded frames to the panel over BLE.
//
// A [Transport] owns the connection for its whole life. [Transport.Run]
// is the maintenance loop: it scans for a device by name prefix, connects,
// subscribes to acknowledgements, sends the mode activation command and
// then serves frames until the link fails, after which it waits the
// reconnect interval and starts over. It never gives up on its own.
//
// Frames arrive through [Transport.Submit], which stores the payload in a
// single "latest pending" slot. A newer payload replaces one that has not
// started sending yet. Exactly one payload is in flight at a time and its
// chunks are sent strictly in order, each waiting for an acknowledgement
// before the next is written.
//
// State transitions:
//
//	Disconnected → Connecting    scan and connect attempt
//	Connecting   → Connected     link up and activation sent
//	Connected    → Transmitting  pending payload taken
//	Transmitting → Connected     completion ack after the last chunk
//	any          → Disconnected  ack timeout, write error or link loss
//
// Other components only ask [Transport.Accepting], which is true unless the
// state is Disconnected.
package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/observability"
)

// Sentinel errors wrapped by transport failures.
var (
	ErrAckTimeout = stderrors.New("acknowledgement timeout")
	ErrLinkLost   = stderrors.New("link lost")
)

// Defaults for Options.
const (
	DefaultScanTimeout       = 10 * time.Second
	DefaultReconnectInterval = 10 * time.Second
	DefaultAckTimeout        = 8 * time.Second
)

// ackBuffer bounds notifications queued between the adapter callback and
// the sender.
const ackBuffer = 8

// Options configures a Transport.
type Options struct {
	// Prefixes are the accepted device name prefixes.
	Prefixes []string

	ScanTimeout       time.Duration
	ReconnectInterval time.Duration
	AckTimeout        time.Duration

	// ChunkSize overrides ChunkSize. Zero uses the default.
	ChunkSize int

	// Brightness is sent after activation on every connect. Negative
	// values skip the command.
	Brightness int

	// PowerOffOnExit sends a power-off command over the live link when Run
	// is cancelled.
	PowerOffOnExit bool

	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.ScanTimeout <= 0 {
		o.ScanTimeout = DefaultScanTimeout
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = DefaultReconnectInterval
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = DefaultAckTimeout
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = ChunkSize
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Stats are cumulative transfer counters.
type Stats struct {
	FramesSent    int64
	FramesFailed  int64
	FramesDropped int64
	Connects      int64
}

// Transport maintains the device link and sends payloads over it.
type Transport struct {
	adapter Adapter
	opts    Options
	log     *log.Logger

	state atomic.Int32

	mu      sync.Mutex
	pending []byte
	session string
	device  string
	lastErr error
	wake    chan struct{}

	sent, failed, dropped, connects atomic.Int64
}

// New returns a Transport. Call Run to start connecting.
func New(adapter Adapter, opts Options) *Transport {
	opts.setDefaults()
	return &Transport{
		adapter: adapter,
		opts:    opts,
		log:     opts.Logger,
		wake:    make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (t *Transport) State() State {
	return State(t.state.Load())
}

// Accepting reports whether Submit would keep a payload.
func (t *Transport) Accepting() bool {
	return t.State() != Disconnected
}

// Submit makes payload the latest pending frame, replacing any pending
// frame that has not started sending. It returns false and drops payload
// when the transport is disconnected. The transport keeps payload; the
// caller must not modify it afterwards.
func (t *Transport) Submit(payload []byte) bool {
	if !t.Accepting() || len(payload) == 0 {
		t.dropped.Add(1)
		return false
	}

	t.mu.Lock()
	// disconnect may have run since the check above.
	if !t.Accepting() {
		t.mu.Unlock()
		t.dropped.Add(1)
		return false
	}
	if t.pending != nil {
		t.dropped.Add(1)
	}
	t.pending = payload
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return true
}

// Session returns the id of the current connection and the device name,
// or empty strings when disconnected.
func (t *Transport) Session() (id, device string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session, t.device
}

// LastError returns the error that ended the most recent connection or
// connection attempt.
func (t *Transport) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Stats returns the transfer counters.
func (t *Transport) Stats() Stats {
	return Stats{
		FramesSent:    t.sent.Load(),
		FramesFailed:  t.failed.Load(),
		FramesDropped: t.dropped.Load(),
		Connects:      t.connects.Load(),
	}
}

// Run maintains the connection until ctx is cancelled. It always returns
// ctx.Err().
func (t *Transport) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			t.disconnect(ctx, nil)
			return ctx.Err()
		}

		link, acks, err := t.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.disconnect(ctx, nil)
				return ctx.Err()
			}
			t.disconnect(ctx, err)
			t.log.Warn("connect failed, retrying", "err", err, "delay", t.opts.ReconnectInterval)
			if !sleep(ctx, t.opts.ReconnectInterval) {
				return ctx.Err()
			}
			continue
		}

		err = t.serve(ctx, link, acks)
		if ctx.Err() != nil {
			t.powerOff(link)
			_ = link.Close()
			t.disconnect(ctx, nil)
			return ctx.Err()
		}
		_ = link.Close()
		t.disconnect(ctx, err)
		t.log.Warn("connection lost, reconnecting", "err", err, "delay", t.opts.ReconnectInterval)
		if !sleep(ctx, t.opts.ReconnectInterval) {
			return ctx.Err()
		}
	}
}

// connect scans, connects, subscribes and activates the panel.
func (t *Transport) connect(ctx context.Context) (Link, <-chan byte, error) {
	t.setState(ctx, Connecting)

	scanCtx, cancel := context.WithTimeout(ctx, t.opts.ScanTimeout)
	dev, err := t.adapter.Scan(scanCtx, t.opts.Prefixes)
	cancel()
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeDeviceNotFound, err, "scan for %v", t.opts.Prefixes)
		}
		return nil, nil, err
	}
	t.log.Debug("device found", "name", dev.Name, "address", dev.Address)

	link, err := t.adapter.Connect(ctx, dev)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeLinkLost, err, "connect %s", dev.Name)
	}

	acks := make(chan byte, ackBuffer)
	err = link.Subscribe(NotifyCharUUID, func(data []byte) {
		code, ok := ParseAck(data)
		if !ok {
			return
		}
		select {
		case acks <- code:
		default:
		}
	})
	if err != nil {
		_ = link.Close()
		return nil, nil, errors.Wrap(errors.ErrCodeLinkLost, err, "subscribe %s", NotifyCharUUID)
	}

	if err := link.Write(ctx, WriteCharUUID, ActivateCommand); err != nil {
		_ = link.Close()
		return nil, nil, errors.Wrap(errors.ErrCodeLinkLost, err, "activate")
	}
	if t.opts.Brightness >= 0 {
		if err := link.Write(ctx, WriteCharUUID, BrightnessCommand(t.opts.Brightness)); err != nil {
			_ = link.Close()
			return nil, nil, errors.Wrap(errors.ErrCodeLinkLost, err, "set brightness")
		}
	}

	id := uuid.NewString()
	t.mu.Lock()
	t.session, t.device = id, dev.Name
	t.lastErr = nil
	t.mu.Unlock()
	t.connects.Add(1)

	t.log.Info("connected", "device", dev.Name, "address", dev.Address, "session", id)
	observability.Transport().OnConnected(ctx, dev.Name, id)
	t.setState(ctx, Connected)
	return link, acks, nil
}

// serve sends pending payloads until the link fails.
func (t *Transport) serve(ctx context.Context, link Link, acks <-chan byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-link.Lost():
			return errors.Wrap(errors.ErrCodeLinkLost, ErrLinkLost, "idle")
		case <-t.wake:
			payload := t.take()
			if payload == nil {
				continue
			}
			if err := t.send(ctx, link, acks, payload); err != nil {
				return err
			}
		}
	}
}

// send transmits one payload chunk by chunk.
func (t *Transport) send(ctx context.Context, link Link, acks <-chan byte, payload []byte) error {
	t.setState(ctx, Transmitting)
	start := time.Now()
	chunks := Split(payload, t.opts.ChunkSize)

	fail := func(err error) error {
		t.failed.Add(1)
		observability.Transport().OnFrameFailed(ctx, len(payload), err)
		return err
	}

	for _, c := range chunks {
		drain(acks)
		if err := link.Write(ctx, WriteCharUUID, c.Frame()); err != nil {
			return fail(errors.Wrap(errors.ErrCodeLinkLost, fmt.Errorf("%w: %w", ErrLinkLost, err),
				"write chunk %d/%d", c.Index+1, c.Total))
		}
		if err := t.awaitAck(ctx, link, acks, c); err != nil {
			return fail(err)
		}
		t.log.Debug("chunk acknowledged", "chunk", c.Index+1, "of", c.Total, "bytes", len(c.Data))
	}

	t.sent.Add(1)
	elapsed := time.Since(start)
	t.log.Debug("frame sent", "bytes", len(payload), "chunks", len(chunks), "elapsed", elapsed)
	observability.Transport().OnFrameSent(ctx, len(payload), len(chunks), elapsed)
	t.setState(ctx, Connected)
	return nil
}

// awaitAck waits for the acknowledgement of c. Any valid code accepts an
// intermediate chunk; the last chunk needs AckComplete.
func (t *Transport) awaitAck(ctx context.Context, link Link, acks <-chan byte, c Chunk) error {
	timer := time.NewTimer(t.opts.AckTimeout)
	defer timer.Stop()

	for {
		select {
		case code := <-acks:
			if !c.Last() || code == AckComplete {
				return nil
			}
		case <-link.Lost():
			return errors.Wrap(errors.ErrCodeLinkLost, ErrLinkLost, "chunk %d/%d", c.Index+1, c.Total)
		case <-timer.C:
			return errors.Wrap(errors.ErrCodeAckTimeout, ErrAckTimeout,
				"chunk %d/%d after %s", c.Index+1, c.Total, t.opts.AckTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// take empties the pending slot.
func (t *Transport) take() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pending
	t.pending = nil
	return p
}

// powerOff switches the panel off on shutdown when configured. The run
// context is already done, so the write gets its own short deadline.
func (t *Transport) powerOff(link Link) {
	if !t.opts.PowerOffOnExit {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.AckTimeout)
	defer cancel()
	if err := link.Write(ctx, WriteCharUUID, PowerCommand(false)); err != nil {
		t.log.Warn("power off failed", "err", err)
	}
}

// disconnect moves to Disconnected and discards the pending frame.
func (t *Transport) disconnect(ctx context.Context, cause error) {
	t.mu.Lock()
	if t.pending != nil {
		t.dropped.Add(1)
		t.pending = nil
	}
	t.session, t.device = "", ""
	if cause != nil {
		t.lastErr = cause
	}
	// Flip the state with the slot cleared so no Submit lands in between.
	old := State(t.state.Swap(int32(Disconnected)))
	t.mu.Unlock()

	select {
	case <-t.wake:
	default:
	}
	t.reportState(ctx, old, Disconnected)
}

func (t *Transport) setState(ctx context.Context, s State) {
	t.reportState(ctx, State(t.state.Swap(int32(s))), s)
}

func (t *Transport) reportState(ctx context.Context, old, s State) {
	if old == s {
		return
	}
	t.log.Debug("state", "from", old, "to", s)
	observability.Transport().OnStateChange(ctx, old.String(), s.String())
}

func drain(acks <-chan byte) {
	for {
		select {
		case <-acks:
		default:
			return
		}
	}
}

// sleep waits for d or ctx, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
