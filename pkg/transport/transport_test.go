package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	stderrors "errors"
	"testing"
	"time"

	"github.com/matzehuels/pixclock/pkg/errors"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		size int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{4096, []int{4096}},
		{4097, []int{4096, 1}},
		{9000, []int{4096, 4096, 808}},
		{12288, []int{4096, 4096, 4096}},
	}
	for _, tt := range tests {
		chunks := Split(payloadOf(tt.size), ChunkSize)
		if len(chunks) != len(tt.want) {
			t.Errorf("Split(%d) = %d chunks, want %d", tt.size, len(chunks), len(tt.want))
			continue
		}
		for i, c := range chunks {
			if len(c.Data) != tt.want[i] {
				t.Errorf("Split(%d)[%d] = %d bytes, want %d", tt.size, i, len(c.Data), tt.want[i])
			}
			if c.Index != i || c.Total != len(tt.want) || c.Size != tt.size {
				t.Errorf("Split(%d)[%d] = %+v", tt.size, i, c)
			}
			if c.Last() != (i == len(tt.want)-1) {
				t.Errorf("Split(%d)[%d].Last() = %v", tt.size, i, c.Last())
			}
		}
	}
}

func TestChunkFrame(t *testing.T) {
	chunks := Split(payloadOf(9000), ChunkSize)

	first := chunks[0].Frame()
	if got := binary.LittleEndian.Uint16(first[0:2]); got != 4096+9 {
		t.Errorf("length field = %d, want %d", got, 4096+9)
	}
	if first[2] != 0 || first[3] != 0 {
		t.Errorf("reserved bytes = % x", first[2:4])
	}
	if first[4] != 0x00 {
		t.Errorf("first chunk option = %#x, want 0x00", first[4])
	}
	if got := binary.LittleEndian.Uint32(first[5:9]); got != 9000 {
		t.Errorf("total field = %d, want 9000", got)
	}

	last := chunks[2].Frame()
	if len(last) != 808+9 {
		t.Errorf("last frame = %d bytes, want %d", len(last), 808+9)
	}
	if last[4] != 0x02 {
		t.Errorf("continuation option = %#x, want 0x02", last[4])
	}
	if !bytes.Equal(last[9:], chunks[2].Data) {
		t.Error("frame body should be the chunk data")
	}
}

func TestParseAck(t *testing.T) {
	tests := []struct {
		data []byte
		code byte
		ok   bool
	}{
		{[]byte{0x05, 0x00, 0x01, 0x00, 0x00}, 0, true},
		{[]byte{0x05, 0x00, 0x01, 0x00, 0x02}, 2, true},
		{[]byte{0x05, 0x00, 0x01, 0x00, 0x03}, 3, true},
		{[]byte{0x03}, 3, true},
		{[]byte{0x01}, 1, true},
		{[]byte{0x05, 0x00, 0x01, 0x00, 0x07}, 0, false},
		{[]byte{0x06, 0x00, 0x01, 0x00, 0x03}, 0, false},
		{[]byte{0x05, 0x00}, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		code, ok := ParseAck(tt.data)
		if code != tt.code || ok != tt.ok {
			t.Errorf("ParseAck(% x) = %d, %v; want %d, %v", tt.data, code, ok, tt.code, tt.ok)
		}
	}
}

func TestCommands(t *testing.T) {
	if got := BrightnessCommand(50); !bytes.Equal(got, []byte{5, 0, 4, 0x80, 50}) {
		t.Errorf("BrightnessCommand(50) = % x", got)
	}
	if got := BrightnessCommand(150); got[4] != 100 {
		t.Errorf("BrightnessCommand(150) level = %d, want 100", got[4])
	}
	if got := BrightnessCommand(-5); got[4] != 0 {
		t.Errorf("BrightnessCommand(-5) level = %d, want 0", got[4])
	}
	if got := PowerCommand(true); !bytes.Equal(got, []byte{5, 0, 7, 1, 1}) {
		t.Errorf("PowerCommand(true) = % x", got)
	}
}

func TestMatchesPrefix(t *testing.T) {
	prefixes := []string{"IDM-", "LED_BLE_"}
	tests := []struct {
		name string
		want bool
	}{
		{"IDM-3A2F", true},
		{"LED_BLE_01", true},
		{"idm-3a2f", false},
		{"Pixel 8", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := MatchesPrefix(tt.name, prefixes); got != tt.want {
			t.Errorf("MatchesPrefix(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSubmitWhileDisconnected(t *testing.T) {
	tr := New(newFakeAdapter(), testOptions())
	if tr.Accepting() {
		t.Error("new transport should not accept frames")
	}
	if tr.Submit(payloadOf(10)) {
		t.Error("Submit should drop while disconnected")
	}
	if got := tr.Stats().FramesDropped; got != 1 {
		t.Errorf("FramesDropped = %d, want 1", got)
	}
}

func TestDisconnectClearsPendingFrame(t *testing.T) {
	tr := New(newFakeAdapter(), testOptions())
	tr.setState(context.Background(), Connected)
	if !tr.Submit(payloadOf(10)) {
		t.Fatal("Submit while connected should keep the payload")
	}

	tr.disconnect(context.Background(), nil)
	if tr.take() != nil {
		t.Error("pending payload survived disconnect")
	}
	if len(tr.wake) != 0 {
		t.Error("wake token survived disconnect")
	}
}

func TestSubmitRacingDisconnect(t *testing.T) {
	tr := New(newFakeAdapter(), testOptions())
	tr.setState(context.Background(), Connected)

	// Hold the slot lock so Submit passes its first check and then waits,
	// and disconnect while it waits.
	tr.mu.Lock()
	kept := make(chan bool, 1)
	go func() { kept <- tr.Submit(payloadOf(10)) }()
	time.Sleep(20 * time.Millisecond)
	tr.pending = nil
	tr.state.Store(int32(Disconnected))
	tr.mu.Unlock()

	if <-kept {
		t.Error("Submit kept a payload after the transport disconnected")
	}
	if tr.take() != nil {
		t.Error("stale payload left pending")
	}
}

func TestSendGatedByAcks(t *testing.T) {
	tr, _, l := connected(t, testOptions())

	payload := payloadOf(9000)
	if !tr.Submit(payload) {
		t.Fatal("Submit rejected while connected")
	}

	var got []byte
	wantSizes := []int{4096, 4096, 808}
	for i, size := range wantSizes {
		w := recvWrite(t, l)
		if len(w) != size+chunkHeaderSize {
			t.Fatalf("chunk %d = %d bytes, want %d", i+1, len(w), size+chunkHeaderSize)
		}
		got = append(got, w[chunkHeaderSize:]...)
		if tr.State() != Transmitting {
			t.Errorf("state during chunk %d = %s", i+1, tr.State())
		}

		// Nothing more until this chunk is acknowledged.
		expectNoWrite(t, l, 50*time.Millisecond)
		if i < len(wantSizes)-1 {
			l.Ack(byte(i))
		}
	}

	// A continue code does not complete the payload.
	l.Ack(AckContinueEnd)
	time.Sleep(30 * time.Millisecond)
	if tr.Stats().FramesSent != 0 || tr.State() != Transmitting {
		t.Fatalf("frame completed without the completion code (state %s)", tr.State())
	}

	l.Ack(AckComplete)
	waitFor(t, "frame sent", func() bool { return tr.Stats().FramesSent == 1 })
	waitFor(t, "back to connected", func() bool { return tr.State() == Connected })

	if !bytes.Equal(got, payload) {
		t.Error("reassembled chunks differ from payload")
	}
}

func TestAckTimeoutAbandonsPayload(t *testing.T) {
	opts := testOptions()
	opts.AckTimeout = 50 * time.Millisecond
	opts.ReconnectInterval = 300 * time.Millisecond
	tr, a, l := connected(t, opts)

	tr.Submit(payloadOf(9000))
	recvWrite(t, l) // chunk 1, never acknowledged

	waitFor(t, "disconnect", func() bool { return tr.State() == Disconnected })
	if !l.isClosed() {
		t.Error("link should be closed after ack timeout")
	}
	err := tr.LastError()
	if !stderrors.Is(err, ErrAckTimeout) || !errors.Is(err, errors.ErrCodeAckTimeout) {
		t.Errorf("LastError() = %v, want ack timeout", err)
	}
	if tr.Submit(payloadOf(10)) {
		t.Error("Submit should drop while disconnected")
	}

	// Reconnect repeats the handshake; the old link sees nothing more.
	l2 := nextLink(t, a)
	if w := recvWrite(t, l2); !bytes.Equal(w, ActivateCommand) {
		t.Errorf("first write after reconnect = % x, want activation", w)
	}
	expectNoWrite(t, l, 20*time.Millisecond)
	if got := tr.Stats().FramesFailed; got != 1 {
		t.Errorf("FramesFailed = %d, want 1", got)
	}
}

func TestLinkLossMidTransmission(t *testing.T) {
	opts := testOptions()
	opts.ReconnectInterval = 200 * time.Millisecond
	tr, a, l := connected(t, opts)

	tr.Submit(payloadOf(9000))
	recvWrite(t, l)
	l.Ack(AckContinue)
	recvWrite(t, l)
	l.Drop()

	waitFor(t, "disconnect", func() bool { return tr.State() == Disconnected })
	if !stderrors.Is(tr.LastError(), ErrLinkLost) {
		t.Errorf("LastError() = %v, want link lost", tr.LastError())
	}

	l2 := nextLink(t, a)
	if w := recvWrite(t, l2); !bytes.Equal(w, ActivateCommand) {
		t.Fatalf("first write after reconnect = % x, want activation", w)
	}
	waitFor(t, "reconnected", func() bool { return tr.State() == Connected })
	expectNoWrite(t, l, 10*time.Millisecond)

	// The abandoned payload is gone; a new one starts from its first chunk.
	tr.Submit(payloadOf(100))
	w := recvWrite(t, l2)
	if w[4] != optFirst || binary.LittleEndian.Uint32(w[5:9]) != 100 {
		t.Errorf("header = % x, want a fresh 100-byte payload", w[:9])
	}
	expectNoWrite(t, l2, 20*time.Millisecond)
}

func TestLatestPendingSupersedes(t *testing.T) {
	tr, _, l := connected(t, testOptions())

	tr.Submit(payloadOf(9000))
	recvWrite(t, l)

	// Two frames arrive while the first is in flight; only the newest
	// survives.
	tr.Submit(payloadOf(100))
	tr.Submit(payloadOf(200))

	l.Ack(AckContinue)
	recvWrite(t, l)
	l.Ack(AckContinue)
	recvWrite(t, l)
	l.Ack(AckComplete)

	w := recvWrite(t, l)
	if got := binary.LittleEndian.Uint32(w[5:9]); got != 200 {
		t.Errorf("next payload total = %d, want 200 (latest)", got)
	}
	l.Ack(AckComplete)
	waitFor(t, "two frames sent", func() bool { return tr.Stats().FramesSent == 2 })
	expectNoWrite(t, l, 50*time.Millisecond)

	if got := tr.Stats().FramesDropped; got != 1 {
		t.Errorf("FramesDropped = %d, want 1", got)
	}
}

func TestBrightnessAfterActivation(t *testing.T) {
	opts := testOptions()
	opts.Brightness = 50
	a := newFakeAdapter()
	startTransport(t, a, opts)

	l := nextLink(t, a)
	if w := recvWrite(t, l); !bytes.Equal(w, ActivateCommand) {
		t.Errorf("write 1 = % x, want activation", w)
	}
	if w := recvWrite(t, l); !bytes.Equal(w, BrightnessCommand(50)) {
		t.Errorf("write 2 = % x, want brightness", w)
	}
}

func TestScanRetries(t *testing.T) {
	opts := testOptions()
	opts.ReconnectInterval = 10 * time.Millisecond
	a := newFakeAdapter()
	a.scanFail.Store(3)
	tr := startTransport(t, a, opts)

	nextLink(t, a)
	waitFor(t, "connected", func() bool { return tr.State() == Connected })
	if got := a.scans.Load(); got != 4 {
		t.Errorf("scans = %d, want 4", got)
	}
	if id, dev := tr.Session(); id == "" || dev != "IDM-TEST" {
		t.Errorf("Session() = %q, %q", id, dev)
	}
	if tr.LastError() != nil {
		t.Errorf("LastError() = %v after connect, want nil", tr.LastError())
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	a := newFakeAdapter()
	tr := New(a, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	l := nextLink(t, a)
	recvWrite(t, l)
	cancel()

	select {
	case err := <-done:
		if !stderrors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
	if tr.State() != Disconnected {
		t.Errorf("state = %s, want disconnected", tr.State())
	}
	if !l.isClosed() {
		t.Error("link should be closed on shutdown")
	}
	expectNoWrite(t, l, 10*time.Millisecond)
}

func TestPowerOffOnExit(t *testing.T) {
	opts := testOptions()
	opts.PowerOffOnExit = true
	a := newFakeAdapter()
	tr := New(a, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	l := nextLink(t, a)
	recvWrite(t, l)
	waitFor(t, "connected", func() bool { return tr.State() == Connected })
	cancel()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
	if w := recvWrite(t, l); !bytes.Equal(w, PowerCommand(false)) {
		t.Errorf("shutdown write = % x, want power off", w)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		Transmitting: "transmitting",
		State(9):     "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
