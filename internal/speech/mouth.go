package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

var _ domain.Speaker = (*Mouth)(nil)

// MouthOption configures the Mouth.
type MouthOption func(*Mouth)

// WithChunkSize sets the approximate max character count per TTS request.
// Longer segments are split at sentence boundaries and synthesized in
// parallel so playback doesn't stall between sentences.
func WithChunkSize(n int) MouthOption {
	return func(m *Mouth) {
		m.chunkSize = n
	}
}

// WithParallelism bounds the number of synthesis requests in flight.
func WithParallelism(n int) MouthOption {
	return func(m *Mouth) {
		if n > 0 {
			m.parallel = n
		}
	}
}

// WithCacheDir sets the filesystem directory used for persistent audio
// caching. If empty, the disk layer is disabled (pure in-memory).
func WithCacheDir(dir string) MouthOption {
	return func(m *Mouth) {
		m.cacheDir = dir
	}
}

// WithDiskWrite controls whether new cache entries are written to disk.
// Even when false, existing on-disk entries are still read.
func WithDiskWrite(enabled bool) MouthOption {
	return func(m *Mouth) {
		m.diskWrite = enabled
	}
}

// WithVoices replaces the narrator voices.
func WithVoices(v Voices) MouthOption {
	return func(m *Mouth) {
		m.voices = v
	}
}

// Mouth is the audio Speaker: synthesize (parallel, cached) then play
// (sequential). One Speak runs at a time; a second call waits for the
// first to return.
type Mouth struct {
	tts    Synthesizer
	player AudioPlayer
	voices Voices
	log    *logger.Logger
	cache  *AudioCache

	chunkSize int
	parallel  int
	cacheDir  string
	diskWrite bool

	speakMu sync.Mutex
	current inflight

	mu         sync.Mutex
	base       context.Context
	stopBase   context.CancelFunc
	lastSpoken string
}

// NewMouth creates a speaker with the given TTS client and player.
func NewMouth(tts Synthesizer, player AudioPlayer, log *logger.Logger, opts ...MouthOption) *Mouth {
	m := &Mouth{
		tts:       tts,
		player:    player,
		voices:    DefaultVoices(),
		log:       log,
		chunkSize: 200,
		parallel:  4,
		diskWrite: true,
		base:      context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = NewAudioCache(m.cacheDir, m.diskWrite, log)
	return m
}

// Start binds background work (prefetching) to ctx.
func (m *Mouth) Start(ctx context.Context) {
	m.mu.Lock()
	m.base, m.stopBase = context.WithCancel(ctx)
	m.mu.Unlock()
	m.log.Info("mouth started")
}

// Close stops playback and background work.
func (m *Mouth) Close() error {
	m.Stop()
	m.mu.Lock()
	if m.stopBase != nil {
		m.stopBase()
	}
	m.mu.Unlock()
	m.log.Info("mouth stopped")
	return nil
}

// IsSpeaking reports whether a Speak call is running.
func (m *Mouth) IsSpeaking() bool {
	return m.current.active()
}

// Stop cancels the Speak call in progress and silences the device.
func (m *Mouth) Stop() {
	if m.current.stop() {
		m.log.Debug("mouth: stopped")
	}
	m.player.Stop()
}

// LastSpoken returns the text of the last segment played to the end.
func (m *Mouth) LastSpoken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSpoken
}

// Cache returns the audio cache. Useful for stats/logging.
func (m *Mouth) Cache() *AudioCache { return m.cache }

// planned is one segment with the utterances its text was chunked into.
type planned struct {
	seg    domain.Segment
	chunks []*pending
}

// pending is one synthesis result that may not have arrived yet.
type pending struct {
	u     Utterance
	done  chan struct{}
	audio []byte
	err   error
}

func (p *pending) finish(audio []byte, err error) {
	p.audio, p.err = audio, err
	close(p.done)
}

func (p *pending) wait(ctx context.Context) ([]byte, error) {
	select {
	case <-p.done:
		return p.audio, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Speak plays segs in order and returns after the last one. OnStart runs
// once per segment just before its audio starts and PostPause is waited
// after it. A cancelled ctx or a Stop returns an error wrapping
// domain.ErrPlaybackCancelled.
func (m *Mouth) Speak(ctx context.Context, segs []domain.Segment) error {
	m.speakMu.Lock()
	defer m.speakMu.Unlock()

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	ctx, release := m.current.begin(ctx)
	defer release()

	plan := m.plan(segs)
	m.synthesizeAll(ctx, plan)

	for i, p := range plan {
		if p.seg.OnStart != nil {
			if len(p.chunks) == 0 {
				p.seg.OnStart()
			} else if _, err := p.chunks[0].wait(ctx); err == nil {
				// Wait for the first chunk so the callback lines up with sound.
				p.seg.OnStart()
			}
		}
		for _, c := range p.chunks {
			audio, err := c.wait(ctx)
			if ctx.Err() != nil {
				return cancelled(ctx.Err())
			}
			if err != nil {
				return fmt.Errorf("synthesizing segment %d: %w", i, err)
			}
			if err := m.player.Play(ctx, audio); err != nil {
				if ctx.Err() != nil {
					return cancelled(ctx.Err())
				}
				return fmt.Errorf("playing segment %d: %w", i, err)
			}
			if ctx.Err() != nil {
				return cancelled(ctx.Err())
			}
		}

		m.mu.Lock()
		m.lastSpoken = p.seg.Text
		m.mu.Unlock()

		if p.seg.PostPause > 0 {
			select {
			case <-time.After(p.seg.PostPause):
			case <-ctx.Done():
				return cancelled(ctx.Err())
			}
		}
	}
	return nil
}

func (m *Mouth) plan(segs []domain.Segment) []planned {
	out := make([]planned, len(segs))
	for i, seg := range segs {
		out[i].seg = seg
		for _, text := range m.splitChunks(seg.Text) {
			out[i].chunks = append(out[i].chunks, &pending{
				u:    m.utterance(seg, text),
				done: make(chan struct{}),
			})
		}
	}
	return out
}

func (m *Mouth) utterance(seg domain.Segment, text string) Utterance {
	return Utterance{
		Text:  text,
		Voice: m.voices.For(seg.Language, seg.Gender),
		Rate:  seg.Rate,
	}
}

// synthesizeAll starts synthesis of every chunk in playback order with at
// most m.parallel requests in flight. Results land in the pending slots.
func (m *Mouth) synthesizeAll(ctx context.Context, plan []planned) {
	var all []*pending
	for _, p := range plan {
		all = append(all, p.chunks...)
	}
	if len(all) > 1 {
		m.log.Debug("mouth: synthesizing %d chunks for %d segments", len(all), len(plan))
	}

	sem := make(chan struct{}, m.parallel)
	go func() {
		for _, p := range all {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				p.finish(nil, ctx.Err())
				continue
			}
			go func(p *pending) {
				defer func() { <-sem }()
				p.finish(m.synthesizeWithCache(ctx, p.u))
			}(p)
		}
	}()
}

// synthesizeWithCache checks the cache first, otherwise calls the
// synthesizer and stores the result. Thread-safe.
func (m *Mouth) synthesizeWithCache(ctx context.Context, u Utterance) ([]byte, error) {
	if audio, ok := m.cache.Get(u); ok {
		return audio, nil
	}
	audio, err := m.tts.Synthesize(ctx, u)
	if err != nil {
		return nil, err
	}
	m.cache.Put(u, audio)
	return audio, nil
}

// Prefetch synthesizes segs into the cache in the background so a later
// Speak of the same segments starts without waiting. Non-blocking.
func (m *Mouth) Prefetch(segs []domain.Segment) {
	m.mu.Lock()
	ctx := m.base
	m.mu.Unlock()

	for _, seg := range segs {
		for _, text := range m.splitChunks(seg.Text) {
			u := m.utterance(seg, text)
			if m.cache.Has(u) {
				continue
			}
			go func(u Utterance) {
				audio, err := m.tts.Synthesize(ctx, u)
				if err != nil {
					m.log.Debug("prefetch: synthesis failed: %v", err)
					return
				}
				m.cache.Put(u, audio)
			}(u)
		}
	}
}

// splitChunks breaks text into sentence-boundary chunks of approximately
// m.chunkSize characters. Short text comes back as a single chunk and
// blank text as none.
func (m *Mouth) splitChunks(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if m.chunkSize <= 0 || len(text) <= m.chunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, s := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(s) > m.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitSentences splits text at sentence boundaries (. ! ? ;) keeping the
// punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == ';'
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
