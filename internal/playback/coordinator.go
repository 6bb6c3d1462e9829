// Package playback drives a flow engine with a speaker: it segments the
// current step, plays it, and in continuous mode advances and plays the
// next one. Every stop or navigation starts a new generation, and a
// completion from an older generation is ignored.
package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/engine"
	"github.com/hammamikhairi/rosario/internal/logger"
	"github.com/hammamikhairi/rosario/internal/progress"
	"github.com/hammamikhairi/rosario/internal/segment"
)

// Token identifies one playback generation of one coordinator.
type Token struct {
	generation uint64
	session    string
}

// Generation returns the token's generation number.
func (t Token) Generation() uint64 { return t.generation }

func (t Token) String() string {
	return fmt.Sprintf("%s#%d", t.session, t.generation)
}

// Store is the persistence the coordinator needs. progress.Tracker
// implements it.
type Store interface {
	Save(ctx context.Context, p progress.Position) error
	Complete(ctx context.Context, flowKey string) error
	Delete(ctx context.Context, flowKey string) error
	Preferences(ctx context.Context) (domain.Preferences, error)
	LitanyRow(ctx context.Context) int
	SaveLitanyRow(ctx context.Context, row int) error
	ClearLitanyRow(ctx context.Context) error
}

var _ Store = (*progress.Tracker)(nil)

// prefetcher is implemented by speakers that can warm up audio for the
// step after the one playing.
type prefetcher interface {
	Prefetch(segs []domain.Segment)
}

// Snapshot is a consistent view of the coordinator for display.
type Snapshot struct {
	Step       domain.Step
	Index      int
	Total      int
	Progress   float64
	Mystery    string
	Language   domain.Language
	Decade     *domain.DecadeInfo
	Playing    bool
	Continuous bool
	LitanyRow  int
	Generation uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithContinuous sets the initial continuous mode.
func WithContinuous(on bool) Option {
	return func(c *Coordinator) { c.continuous = on }
}

// WithStepHook is called after every cursor change.
func WithStepHook(fn func(Snapshot)) Option {
	return func(c *Coordinator) { c.onStep = fn }
}

// WithSegmentHook is called when a segment starts playing.
func WithSegmentHook(fn func(domain.Segment)) Option {
	return func(c *Coordinator) { c.onSegment = fn }
}

// WithLitanyHook is called when a litany row starts playing.
func WithLitanyHook(fn func(row int)) Option {
	return func(c *Coordinator) { c.onLitanyRow = fn }
}

// WithFinishedHook is called once per valid completion, after the
// coordinator has acted on it. err is nil on success.
func WithFinishedHook(fn func(Token, error)) Option {
	return func(c *Coordinator) { c.onFinished = fn }
}

// Coordinator owns a flow engine for the duration of a session. All
// methods are safe for concurrent use.
type Coordinator struct {
	mu         sync.Mutex
	flow       engine.Flow
	segmenter  *segment.Segmenter
	speaker    domain.Speaker
	store      Store
	log        *logger.Logger
	session    string
	generation uint64
	playing    bool
	continuous bool
	litanyRow  int
	prefs      domain.Preferences
	parent     context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	onStep      func(Snapshot)
	onSegment   func(domain.Segment)
	onLitanyRow func(int)
	onFinished  func(Token, error)
}

// New creates a coordinator. Preferences and the litany position are
// read from store once here and refreshed on every Play.
func New(ctx context.Context, flow engine.Flow, seg *segment.Segmenter, speaker domain.Speaker, store Store, log *logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		flow:      flow,
		segmenter: seg,
		speaker:   speaker,
		store:     store,
		log:       log,
		session:   flow.SessionID(),
		parent:    ctx,
	}
	if c.session == "" {
		c.session = uuid.NewString()
	}
	for _, opt := range opts {
		opt(c)
	}
	if p, err := store.Preferences(ctx); err == nil {
		c.prefs = p
	} else {
		log.Warn("loading preferences: %v", err)
	}
	if flow.CurrentStep().Type == domain.StepLitany {
		c.litanyRow = store.LitanyRow(ctx)
	}
	return c
}

// Valid reports whether tok is the live generation.
func (c *Coordinator) Valid(tok Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked(tok)
}

func (c *Coordinator) validLocked(tok Token) bool {
	return tok == Token{generation: c.generation, session: c.session}
}

// bumpLocked starts a new generation and cancels the playback in flight.
func (c *Coordinator) bumpLocked() Token {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return Token{generation: c.generation, session: c.session}
}

// Play narrates the current step. A playback already in flight is
// cancelled first.
func (c *Coordinator) Play(ctx context.Context) Token {
	c.mu.Lock()
	c.parent = ctx
	if p, err := c.store.Preferences(ctx); err == nil {
		c.prefs = p
	}
	tok := c.playLocked()
	c.mu.Unlock()
	return tok
}

// playLocked must be called with c.mu held.
func (c *Coordinator) playLocked() Token {
	wasPlaying := c.playing
	tok := c.bumpLocked()
	if wasPlaying {
		c.speaker.Stop()
	}

	step := c.flow.CurrentStep()
	segs := c.segmenter.Segments(segment.Input{
		Step:            step,
		Decade:          c.flow.CurrentDecadeInfo(),
		Language:        c.flow.Language(),
		Prefs:           c.prefs,
		LitanyResumeRow: c.litanyRow,
		OnLitanyRow:     func(row int) { c.litanyReached(tok, row) },
	})
	for i := range segs {
		seg := segs[i]
		inner := seg.OnStart
		segs[i].OnStart = func() {
			if !c.Valid(tok) {
				return
			}
			if inner != nil {
				inner()
			}
			if c.onSegment != nil {
				c.onSegment(seg)
			}
		}
	}

	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	c.playing = true
	c.log.Debug("play %s: step %d/%d %s, %d segments", tok, c.flow.CurrentStepNumber(), c.flow.TotalSteps(), step.Type, len(segs))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.speaker.Speak(ctx, segs)
		c.finish(tok, err)
	}()

	if pf, ok := c.speaker.(prefetcher); ok {
		if i := c.flow.CurrentIndex() + 1; i < c.flow.TotalSteps() {
			next := c.flow.Steps()[i]
			pf.Prefetch(c.segmenter.Segments(segment.Input{
				Step:     next,
				Decade:   c.flow.DecadeInfo(i),
				Language: c.flow.Language(),
				Prefs:    c.prefs,
			}))
		}
	}
	return tok
}

func (c *Coordinator) litanyReached(tok Token, row int) {
	c.mu.Lock()
	if !c.validLocked(tok) {
		c.mu.Unlock()
		return
	}
	c.litanyRow = row
	if err := c.store.SaveLitanyRow(c.parent, row); err != nil {
		c.log.Warn("saving litany row: %v", err)
	}
	c.mu.Unlock()

	if c.onLitanyRow != nil {
		c.onLitanyRow(row)
	}
}

// finish handles the end of one Speak call. Only the live generation
// may move the cursor, and it moves it at most one step.
func (c *Coordinator) finish(tok Token, err error) {
	c.mu.Lock()
	if !c.validLocked(tok) {
		c.mu.Unlock()
		c.log.Debug("ignoring stale completion %s", tok)
		return
	}

	if err != nil {
		c.idleLocked()
		c.mu.Unlock()
		c.log.Warn("playback %s failed: %v", tok, err)
		c.finished(tok, err)
		return
	}

	ctx := c.parent
	step := c.flow.CurrentStep()
	if step.Type == domain.StepLitany {
		c.litanyRow = 0
		if err := c.store.ClearLitanyRow(ctx); err != nil {
			c.log.Warn("clearing litany row: %v", err)
		}
	}

	if step.Type == domain.StepComplete {
		c.idleLocked()
		key := c.flow.Key()
		c.mu.Unlock()
		if err := c.store.Complete(ctx, key); err != nil {
			c.log.Warn("completing %s: %v", key, err)
		}
		c.log.Info("%s complete", key)
		c.finished(tok, nil)
		return
	}

	c.idleLocked()
	if !c.continuous || c.flow.NextStep() == nil {
		c.mu.Unlock()
		c.finished(tok, nil)
		return
	}

	c.saveLocked(ctx)
	c.playLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.stepChanged(snap)
	c.finished(tok, nil)
}

func (c *Coordinator) idleLocked() {
	c.playing = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Coordinator) finished(tok Token, err error) {
	if c.onFinished != nil {
		c.onFinished(tok, err)
	}
}

func (c *Coordinator) stepChanged(s Snapshot) {
	if c.onStep != nil {
		c.onStep(s)
	}
}

// Stop cancels playback and keeps the cursor where it is.
func (c *Coordinator) Stop(ctx context.Context) {
	c.mu.Lock()
	c.bumpLocked()
	if c.playing {
		c.playing = false
		c.speaker.Stop()
	}
	c.saveLocked(ctx)
	c.mu.Unlock()
}

// Next moves forward one step. Playback, if running, restarts on the new
// step. It reports false at the last step.
func (c *Coordinator) Next(ctx context.Context) bool {
	return c.navigate(ctx, func(f engine.Flow) bool { return f.NextStep() != nil })
}

// Previous moves back one step.
func (c *Coordinator) Previous(ctx context.Context) bool {
	return c.navigate(ctx, func(f engine.Flow) bool { return f.PreviousStep() != nil })
}

// Jump moves to index; out-of-range indexes are ignored.
func (c *Coordinator) Jump(ctx context.Context, index int) bool {
	return c.navigate(ctx, func(f engine.Flow) bool {
		before := f.CurrentIndex()
		f.JumpToStep(index)
		return f.CurrentIndex() != before
	})
}

// Reset stops playback, rewinds to the first step and deletes the saved
// progress and litany position.
func (c *Coordinator) Reset(ctx context.Context) {
	c.mu.Lock()
	c.parent = ctx
	c.bumpLocked()
	if c.playing {
		c.playing = false
		c.speaker.Stop()
	}
	c.flow.JumpToStep(0)
	c.litanyRow = 0
	if err := c.store.Delete(ctx, c.flow.Key()); err != nil {
		c.log.Warn("deleting progress: %v", err)
	}
	if err := c.store.ClearLitanyRow(ctx); err != nil {
		c.log.Warn("clearing litany row: %v", err)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.stepChanged(snap)
}

// navigate applies move and, when the cursor actually moved, cancels the
// playback in flight, saves progress and restarts playback if it was
// running.
func (c *Coordinator) navigate(ctx context.Context, move func(engine.Flow) bool) bool {
	c.mu.Lock()
	if !move(c.flow) {
		c.mu.Unlock()
		return false
	}
	c.parent = ctx
	wasPlaying := c.playing
	c.bumpLocked()
	if wasPlaying {
		c.playing = false
		c.speaker.Stop()
	}

	c.litanyRow = 0
	if err := c.store.ClearLitanyRow(ctx); err != nil {
		c.log.Warn("clearing litany row: %v", err)
	}
	c.saveLocked(ctx)
	if wasPlaying {
		c.playLocked()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.stepChanged(snap)
	return true
}

// SetLanguage rebuilds the sequence in lang without moving the cursor.
// Playback, if running, restarts in the new language.
func (c *Coordinator) SetLanguage(ctx context.Context, lang domain.Language) error {
	c.mu.Lock()
	if lang == c.flow.Language() {
		c.mu.Unlock()
		return nil
	}
	c.parent = ctx
	if err := c.flow.SetLanguage(lang); err != nil {
		c.mu.Unlock()
		return err
	}
	wasPlaying := c.playing
	c.bumpLocked()
	if wasPlaying {
		c.playing = false
		c.speaker.Stop()
	}
	c.saveLocked(ctx)
	if wasPlaying {
		c.playLocked()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.stepChanged(snap)
	return nil
}

// SetContinuous toggles auto-advance. A playback in flight keeps going
// and the new mode applies when it completes.
func (c *Coordinator) SetContinuous(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.continuous = on
}

// SetPreferences replaces the flags used by the next segmentation.
func (c *Coordinator) SetPreferences(p domain.Preferences) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefs = p
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		Step:       c.flow.CurrentStep(),
		Index:      c.flow.CurrentIndex(),
		Total:      c.flow.TotalSteps(),
		Progress:   c.flow.Progress(),
		Mystery:    c.flow.MysteryName(),
		Language:   c.flow.Language(),
		Decade:     c.flow.CurrentDecadeInfo(),
		Playing:    c.playing,
		Continuous: c.continuous,
		LitanyRow:  c.litanyRow,
		Generation: c.generation,
	}
}

func (c *Coordinator) saveLocked(ctx context.Context) {
	if err := c.store.Save(ctx, c.flow); err != nil {
		c.log.Warn("saving progress: %v", err)
	}
}

// Close cancels playback and waits for in-flight completions.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.bumpLocked()
	if c.playing {
		c.playing = false
		c.speaker.Stop()
	}
	c.mu.Unlock()

	c.wg.Wait()
}
