package transport

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeLink records every write and lets the test deliver notifications.
type fakeLink struct {
	writes chan []byte

	mu     sync.Mutex
	notify func([]byte)
	closed bool

	lost     chan struct{}
	lostOnce sync.Once
}

func newFakeLink() *fakeLink {
	return &fakeLink{writes: make(chan []byte, 64), lost: make(chan struct{})}
}

func (l *fakeLink) Write(ctx context.Context, char string, data []byte) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return stderrors.New("write on closed link")
	}
	l.writes <- append([]byte(nil), data...)
	return nil
}

func (l *fakeLink) Subscribe(char string, fn func([]byte)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = fn
	return nil
}

func (l *fakeLink) Lost() <-chan struct{} { return l.lost }

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.Drop()
	return nil
}

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Ack delivers a 5-byte status notification carrying code.
func (l *fakeLink) Ack(code byte) {
	l.mu.Lock()
	fn := l.notify
	l.mu.Unlock()
	fn([]byte{0x05, 0x00, 0x01, 0x00, code})
}

// Drop simulates a link-level disconnect.
func (l *fakeLink) Drop() {
	l.lostOnce.Do(func() { close(l.lost) })
}

// fakeAdapter hands out a fresh fakeLink per connect.
type fakeAdapter struct {
	links    chan *fakeLink
	scanFail atomic.Int32
	scans    atomic.Int32
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{links: make(chan *fakeLink, 16)}
}

func (a *fakeAdapter) Scan(ctx context.Context, prefixes []string) (Device, error) {
	a.scans.Add(1)
	if a.scanFail.Load() > 0 {
		a.scanFail.Add(-1)
		return Device{}, stderrors.New("nothing in range")
	}
	return Device{Name: prefixes[0] + "TEST", Address: "00:11:22:33:44:55"}, nil
}

func (a *fakeAdapter) Connect(ctx context.Context, dev Device) (Link, error) {
	l := newFakeLink()
	a.links <- l
	return l, nil
}

// =============================================================================
// Helpers
// =============================================================================

const waitTimeout = 2 * time.Second

func testOptions() Options {
	return Options{
		Prefixes:          []string{"IDM-"},
		ScanTimeout:       time.Second,
		ReconnectInterval: 100 * time.Millisecond,
		AckTimeout:        time.Second,
		Brightness:        -1,
	}
}

func startTransport(t *testing.T, a Adapter, opts Options) *Transport {
	t.Helper()
	tr := New(a, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Error("Run did not return after cancel")
		}
	})
	return tr
}

func nextLink(t *testing.T, a *fakeAdapter) *fakeLink {
	t.Helper()
	select {
	case l := <-a.links:
		return l
	case <-time.After(waitTimeout):
		t.Fatal("no connection")
		return nil
	}
}

func recvWrite(t *testing.T, l *fakeLink) []byte {
	t.Helper()
	select {
	case w := <-l.writes:
		return w
	case <-time.After(waitTimeout):
		t.Fatal("no write")
		return nil
	}
}

func expectNoWrite(t *testing.T, l *fakeLink, d time.Duration) {
	t.Helper()
	select {
	case w := <-l.writes:
		t.Fatalf("unexpected write of %d bytes", len(w))
	case <-time.After(d):
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// connected starts a transport and returns it with its first link after
// the activation command.
func connected(t *testing.T, opts Options) (*Transport, *fakeAdapter, *fakeLink) {
	t.Helper()
	a := newFakeAdapter()
	tr := startTransport(t, a, opts)
	l := nextLink(t, a)
	if w := recvWrite(t, l); string(w) != string(ActivateCommand) {
		t.Fatalf("first write = % x, want activation", w)
	}
	waitFor(t, "connected", func() bool { return tr.State() == Connected })
	return tr, a, l
}

func payloadOf(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i * 7)
	}
	return p
}
