package status

import (
	"context"
	"time"

	"github.com/matzehuels/pixclock/pkg/errors"
)

// =============================================================================
// Tick Hooks
// =============================================================================

// OnProviderRefresh records the outcome of one provider refresh.
func (s *Server) OnProviderRefresh(_ context.Context, provider string, d time.Duration, err error) {
	p := Provider{LastRefresh: s.opts.Now(), Duration: d.Round(time.Millisecond).String()}
	if err != nil {
		p.Error = errors.UserMessage(err)
	}

	s.mu.Lock()
	s.snap.Providers[provider] = p
	if err != nil {
		s.snap.LastError = p.Error
	}
	s.mu.Unlock()
}

// OnTickComplete counts the tick and any dropped frame.
func (s *Server) OnTickComplete(_ context.Context, _ []string, size int, _ time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Ticks++
	s.snap.LastTick = s.opts.Now()
	if size > 0 {
		s.snap.LastPayload = size
	}
	if err != nil {
		s.snap.FramesDropped++
	}
}

// OnFrame keeps the payload for GET /frame.png.
func (s *Server) OnFrame(_ context.Context, payload []byte) {
	s.mu.Lock()
	s.frame = payload
	s.mu.Unlock()
}

// =============================================================================
// Transport Hooks
// =============================================================================

// OnStateChange records the link state. Leaving the link clears the session.
func (s *Server) OnStateChange(_ context.Context, from, to string) {
	s.mu.Lock()
	s.snap.State = to
	if to == "disconnected" {
		s.snap.Session, s.snap.Device = "", ""
	}
	s.mu.Unlock()
	s.logger.Debug("link state", "from", from, "to", to)
}

// OnConnected records the session of a new link.
func (s *Server) OnConnected(_ context.Context, device, sessionID string) {
	s.mu.Lock()
	s.snap.Session, s.snap.Device = sessionID, device
	s.mu.Unlock()
}

// OnFrameSent counts a delivered frame.
func (s *Server) OnFrameSent(context.Context, int, int, time.Duration) {
	s.mu.Lock()
	s.snap.FramesSent++
	s.mu.Unlock()
}

// OnFrameFailed counts an abandoned frame and keeps its error.
func (s *Server) OnFrameFailed(_ context.Context, _ int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.FramesFailed++
	if err != nil {
		s.snap.LastError = errors.UserMessage(err)
	}
}
