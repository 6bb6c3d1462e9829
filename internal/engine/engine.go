// Package engine implements the prayer flow state machines: a flat,
// indexable step sequence with a cursor that survives language switches.
//
// Engines are not safe for concurrent use. A single owner (the playback
// coordinator) serializes access.
package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

// Flow is the navigation surface shared by the Rosary and Sacred engines.
type Flow interface {
	CurrentStep() domain.Step
	NextStep() *domain.Step
	PreviousStep() *domain.Step
	JumpToStep(index int)
	TotalSteps() int
	CurrentStepNumber() int
	CurrentIndex() int
	Progress() float64
	IsFirstStep() bool
	IsLastStep() bool
	Steps() []domain.Step

	SetLanguage(lang domain.Language) error
	Language() domain.Language
	CurrentDecadeInfo() *domain.DecadeInfo
	// DecadeInfo resolves the decade of the step at index, or nil.
	DecadeInfo(index int) *domain.DecadeInfo
	MysteryName() string

	// Key identifies the sequence for progress persistence: the mystery
	// tag for a Rosary, domain.SacredProgressKey otherwise.
	Key() string
	SessionID() string
}

var (
	_ Flow = (*Rosary)(nil)
	_ Flow = (*Sacred)(nil)
)

// Option configures an engine at construction.
type Option func(*cursor)

// WithStartIndex restores a saved position. Out-of-range indexes are
// ignored, same as JumpToStep.
func WithStartIndex(i int) Option {
	return func(c *cursor) {
		c.JumpToStep(i)
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(c *cursor) {
		c.sessionID = id
	}
}

// cursor is the index state shared by both engines.
type cursor struct {
	steps     []domain.Step
	index     int
	sessionID string
	log       *logger.Logger
}

func newCursor(steps []domain.Step, log *logger.Logger) cursor {
	return cursor{steps: steps, sessionID: uuid.NewString(), log: log}
}

// CurrentStep returns the step at the cursor.
func (c *cursor) CurrentStep() domain.Step {
	return c.steps[c.index]
}

// NextStep advances the cursor and returns the new current step, or nil
// on the last step. It never wraps.
func (c *cursor) NextStep() *domain.Step {
	if c.index >= len(c.steps)-1 {
		return nil
	}
	c.index++
	c.log.Debug("advanced to step %d/%d (%s)", c.index+1, len(c.steps), c.steps[c.index].Type)
	s := c.steps[c.index]
	return &s
}

// PreviousStep moves the cursor back, or returns nil on the first step.
func (c *cursor) PreviousStep() *domain.Step {
	if c.index == 0 {
		return nil
	}
	c.index--
	c.log.Debug("back to step %d/%d (%s)", c.index+1, len(c.steps), c.steps[c.index].Type)
	s := c.steps[c.index]
	return &s
}

// JumpToStep moves the cursor to index. Out-of-range values are a no-op:
// callers may pass indexes saved against a sequence of another length.
func (c *cursor) JumpToStep(index int) {
	if index < 0 || index >= len(c.steps) {
		c.log.Debug("ignoring jump to %d (have %d steps)", index, len(c.steps))
		return
	}
	c.index = index
	c.log.Debug("jumped to step %d/%d (%s)", c.index+1, len(c.steps), c.steps[c.index].Type)
}

func (c *cursor) TotalSteps() int        { return len(c.steps) }
func (c *cursor) CurrentStepNumber() int { return c.index + 1 }
func (c *cursor) CurrentIndex() int      { return c.index }
func (c *cursor) IsFirstStep() bool      { return c.index == 0 }
func (c *cursor) IsLastStep() bool       { return c.index == len(c.steps)-1 }
func (c *cursor) SessionID() string      { return c.sessionID }

// Progress is index/(len-1) as a percentage in [0,100], measured over the
// whole sequence including opening and closing prayers. Both builders
// produce at least two steps.
func (c *cursor) Progress() float64 {
	return float64(c.index) / float64(len(c.steps)-1) * 100
}

// Steps returns a copy of the sequence.
func (c *cursor) Steps() []domain.Step {
	out := make([]domain.Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// rebuild swaps the sequence and keeps the index.
func (c *cursor) rebuild(steps []domain.Step) {
	idx := c.index
	c.steps = steps
	if idx >= len(steps) {
		idx = len(steps) - 1
	}
	c.index = idx
}

// ── Rosary ───────────────────────────────────────────────────────

// Rosary walks the full Rosary for one mystery set.
type Rosary struct {
	cursor
	content domain.ContentProvider
	mystery domain.MysteryType
	lang    domain.Language
	set     *domain.MysterySet
	meta    *domain.MysteryMeta
}

// NewRosary builds the sequence for (mystery, lang) and places the cursor
// on the first step unless an option restores another position.
func NewRosary(content domain.ContentProvider, mystery domain.MysteryType, lang domain.Language, log *logger.Logger, opts ...Option) (*Rosary, error) {
	r := &Rosary{content: content, mystery: mystery}
	steps, err := r.load(lang)
	if err != nil {
		return nil, err
	}
	r.cursor = newCursor(steps, log)
	for _, opt := range opts {
		opt(&r.cursor)
	}
	log.Info("rosary session %s: %s (%s), %d steps, starting at %d",
		r.sessionID, mystery, lang, len(steps), r.index+1)
	return r, nil
}

// MustRosary is NewRosary for main-level wiring; an invalid mystery is a
// programming error.
func MustRosary(content domain.ContentProvider, mystery domain.MysteryType, lang domain.Language, log *logger.Logger, opts ...Option) *Rosary {
	r, err := NewRosary(content, mystery, lang, log, opts...)
	if err != nil {
		panic(fmt.Sprintf("engine: %v", err))
	}
	return r
}

func (r *Rosary) load(lang domain.Language) ([]domain.Step, error) {
	steps, err := BuildRosary(r.content, r.mystery, lang)
	if err != nil {
		return nil, err
	}
	set, err := r.content.Mysteries(lang, r.mystery)
	if err != nil {
		return nil, err
	}
	meta, err := r.content.MysteryMeta(r.mystery)
	if err != nil {
		return nil, err
	}
	r.lang, r.set, r.meta = lang, set, meta
	return steps, nil
}

// SetLanguage rebuilds the sequence in lang. The cursor index is kept.
func (r *Rosary) SetLanguage(lang domain.Language) error {
	if lang == r.lang {
		return nil
	}
	steps, err := r.load(lang)
	if err != nil {
		return fmt.Errorf("switching language: %w", err)
	}
	r.rebuild(steps)
	r.log.Debug("language switched to %s at step %d", lang, r.index+1)
	return nil
}

func (r *Rosary) Language() domain.Language   { return r.lang }
func (r *Rosary) Mystery() domain.MysteryType { return r.mystery }
func (r *Rosary) Key() string                 { return string(r.mystery) }
func (r *Rosary) MysteryName() string         { return r.set.Name }

// CurrentDecadeInfo is DecadeInfo for the cursor's step.
func (r *Rosary) CurrentDecadeInfo() *domain.DecadeInfo { return r.DecadeInfo(r.index) }

// DecadeInfo merges the language-resolved decade with its reference data,
// or returns nil outside the five decades and for out-of-range indexes.
func (r *Rosary) DecadeInfo(index int) *domain.DecadeInfo {
	if index < 0 || index >= len(r.steps) {
		return nil
	}
	step := r.steps[index]
	if !step.InDecade() {
		return nil
	}
	decade := r.set.Decade(step.DecadeNumber)
	if decade == nil {
		return nil
	}
	info := &domain.DecadeInfo{
		Number:     decade.Number,
		Title:      decade.Title,
		Reflection: decade.Reflection,
	}
	if ref := r.meta.Ref(step.DecadeNumber); ref != nil {
		info.Fruit = ref.Fruit[r.lang]
		info.Scripture = ref.Scripture[r.lang]
		info.Reference = ref.Reference[r.lang]
		info.ImageURL = ref.ImageURL
	}
	return info
}

// ── Sacred ───────────────────────────────────────────────────────

// Sacred walks the fixed Sacred Prayers sequence.
type Sacred struct {
	cursor
	content domain.ContentProvider
	lang    domain.Language
	name    string
}

// NewSacred builds the fixed sequence in lang.
func NewSacred(content domain.ContentProvider, lang domain.Language, log *logger.Logger, opts ...Option) (*Sacred, error) {
	s := &Sacred{content: content}
	steps, err := s.load(lang)
	if err != nil {
		return nil, err
	}
	s.cursor = newCursor(steps, log)
	for _, opt := range opts {
		opt(&s.cursor)
	}
	log.Info("sacred session %s (%s), %d steps, starting at %d", s.sessionID, lang, len(steps), s.index+1)
	return s, nil
}

// MustSacred is NewSacred for main-level wiring.
func MustSacred(content domain.ContentProvider, lang domain.Language, log *logger.Logger, opts ...Option) *Sacred {
	s, err := NewSacred(content, lang, log, opts...)
	if err != nil {
		panic(fmt.Sprintf("engine: %v", err))
	}
	return s
}

func (s *Sacred) load(lang domain.Language) ([]domain.Step, error) {
	steps, err := BuildSacred(s.content, lang)
	if err != nil {
		return nil, err
	}
	fp, err := s.content.FixedPrayers(lang)
	if err != nil {
		return nil, err
	}
	s.lang, s.name = lang, fp.Labels.SacredPrayers
	return steps, nil
}

// SetLanguage rebuilds the sequence in lang. The cursor index is kept.
func (s *Sacred) SetLanguage(lang domain.Language) error {
	if lang == s.lang {
		return nil
	}
	steps, err := s.load(lang)
	if err != nil {
		return fmt.Errorf("switching language: %w", err)
	}
	s.rebuild(steps)
	s.log.Debug("language switched to %s at step %d", lang, s.index+1)
	return nil
}

func (s *Sacred) Language() domain.Language { return s.lang }
func (s *Sacred) Key() string               { return domain.SacredProgressKey }
func (s *Sacred) MysteryName() string       { return s.name }

// CurrentDecadeInfo is always nil: the fixed sequence has no decades.
func (s *Sacred) CurrentDecadeInfo() *domain.DecadeInfo { return nil }
func (s *Sacred) DecadeInfo(int) *domain.DecadeInfo     { return nil }
