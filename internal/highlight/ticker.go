// Package highlight runs the background word clock that marks which word
// of the segment being spoken should be highlighted. Timing is estimated
// from word counts, so it is cosmetic only.
package highlight

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

// Highlight is the word currently marked in Text.
type Highlight struct {
	Text  string
	Words []string
	Word  int
}

// Option configures the ticker.
type Option func(*Ticker)

// WithTickInterval sets how often the ticker re-evaluates the word.
func WithTickInterval(d time.Duration) Option {
	return func(t *Ticker) {
		t.tickInterval = d
	}
}

// WithWordPace sets the estimated time per word.
func WithWordPace(d time.Duration) Option {
	return func(t *Ticker) {
		t.perWord = d
	}
}

// WithHook is called from the tick loop each time the marked word moves.
func WithHook(fn func(Highlight)) Option {
	return func(t *Ticker) {
		t.onChange = fn
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Ticker) {
		t.now = now
	}
}

// Ticker follows the segment most recently started and advances the
// highlighted word on a timer.
type Ticker struct {
	log          *logger.Logger
	tickInterval time.Duration
	perWord      time.Duration
	onChange     func(Highlight)
	now          func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	enabled bool
	active  bool
	current Highlight
	rate    float64
	started time.Time
}

// New creates a highlight ticker. It starts enabled.
func New(log *logger.Logger, opts ...Option) *Ticker {
	t := &Ticker{
		log:          log,
		tickInterval: 100 * time.Millisecond,
		perWord:      domain.DefaultWordPace,
		now:          time.Now,
		enabled:      true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the background tick loop. Non-blocking.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		t.log.Warn("highlight ticker already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true

	go t.loop(childCtx)

	t.log.Info("highlight ticker started (tick=%s, pace=%s/word)", t.tickInterval, t.perWord)
}

// Stop shuts down the tick loop.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}

	t.cancel()
	t.running = false
	t.log.Info("highlight ticker stopped")
}

// SetEnabled turns highlighting on or off. Turning it off clears the
// current highlight.
func (t *Ticker) SetEnabled(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = on
	if !on {
		t.active = false
	}
}

// Begin starts following seg from its first word.
func (t *Ticker) Begin(seg domain.Segment) {
	words := strings.Fields(seg.Text)

	t.mu.Lock()
	if !t.enabled || len(words) == 0 {
		t.mu.Unlock()
		return
	}
	t.current = Highlight{Text: seg.Text, Words: words, Word: 0}
	t.rate = seg.Rate
	t.started = t.now()
	t.active = true
	h := t.current
	t.mu.Unlock()

	t.notify(h)
}

// Clear drops the current highlight, e.g. when playback stops.
func (t *Ticker) Clear() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

// Current returns the highlight, if any.
func (t *Ticker) Current() (Highlight, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.active
}

func (t *Ticker) loop(ctx context.Context) {
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// tick moves the marked word to where the clock says the voice is. The
// last word stays marked until the next Begin or Clear.
func (t *Ticker) tick() {
	t.mu.Lock()
	if !t.active || t.perWord <= 0 {
		t.mu.Unlock()
		return
	}
	pace := t.perWord
	if t.rate > 0 {
		pace = time.Duration(float64(pace) / t.rate)
	}
	word := int(t.now().Sub(t.started) / pace)
	if last := len(t.current.Words) - 1; word > last {
		word = last
	}
	if word == t.current.Word {
		t.mu.Unlock()
		return
	}
	t.current.Word = word
	h := t.current
	t.mu.Unlock()

	t.notify(h)
}

func (t *Ticker) notify(h Highlight) {
	if t.onChange != nil {
		t.onChange(h)
	}
}
