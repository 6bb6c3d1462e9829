package speech

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

var _ domain.Speaker = (*Silent)(nil)

// SilentOption configures a Silent speaker.
type SilentOption func(*Silent)

// WithWordPace sets the time spent per word. Zero makes Speak return as
// soon as every OnStart has run.
func WithWordPace(d time.Duration) SilentOption {
	return func(s *Silent) { s.perWord = d }
}

// Silent is a speaker without audio. It walks the segments at a
// word-count pace so continuous mode and highlighting behave as they do
// with real speech. Used when voice is disabled.
type Silent struct {
	log     *logger.Logger
	perWord time.Duration

	speakMu sync.Mutex
	current inflight
}

// NewSilent creates a silent speaker.
func NewSilent(log *logger.Logger, opts ...SilentOption) *Silent {
	s := &Silent{log: log, perWord: domain.DefaultWordPace}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Speak runs each OnStart and waits the estimated length plus PostPause
// of every segment.
func (s *Silent) Speak(ctx context.Context, segs []domain.Segment) error {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	ctx, release := s.current.begin(ctx)
	defer release()

	for _, seg := range segs {
		if seg.OnStart != nil {
			seg.OnStart()
		}
		s.log.Debug("silent: would say (%s, %s) %q", seg.Language, seg.Gender, truncate(seg.Text, 60))

		d := seg.Estimate(s.perWord)
		if s.perWord > 0 {
			d += seg.PostPause
		}
		if d <= 0 {
			if err := ctx.Err(); err != nil {
				return cancelled(err)
			}
			continue
		}
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return cancelled(ctx.Err())
		}
	}
	return nil
}

// Stop cancels the Speak call in progress.
func (s *Silent) Stop() {
	s.current.stop()
}

// IsSpeaking reports whether a Speak call is running.
func (s *Silent) IsSpeaking() bool {
	return s.current.active()
}
