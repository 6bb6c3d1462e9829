package speech

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/rosario/internal/logger"
)

// earState represents the Ear's listening mode.
type earState int

const (
	// earDormant: passively scanning short clips for the wake word.
	earDormant earState = iota
	// earListening: wake word detected, capturing the command.
	earListening
)

// Default wake phrases, both languages. Any of these in a transcription
// (case-insensitive) triggers active listening.
var defaultWakeWords = []string{
	"hey rosary",
	"hola rosario",
	"rosary",
	"rosario",
	"rosa rio",
}

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[laughter]", "(speaking Spanish)", etc.
var envAnnotation = regexp.MustCompile(`[\(\[][\p{L}][\p{L}\s_]*[\)\]]`)

// timestampPrefix matches "[00:00:00.000 --> 00:00:05.000]".
var timestampPrefix = regexp.MustCompile(`^\[[0-9:.\s\->]+\]\s*`)

// Busy reports whether audio is currently coming out of the speakers.
type Busy interface {
	IsSpeaking() bool
}

// EarOption configures the Ear.
type EarOption func(*Ear)

// WithRecordDuration sets how long each active-listening chunk lasts.
func WithRecordDuration(d time.Duration) EarOption {
	return func(e *Ear) { e.recordDuration = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) EarOption {
	return func(e *Ear) { e.tempDir = dir }
}

// WithWakeWords overrides the default wake phrases.
func WithWakeWords(words ...string) EarOption {
	return func(e *Ear) { e.wakeWords = words }
}

// WithListenTimeout sets how long the ear stays in active listening
// mode before giving up and returning to dormant.
func WithListenTimeout(d time.Duration) EarOption {
	return func(e *Ear) { e.listenTimeout = d }
}

// WithDormantDuration sets how long each dormant listening recording lasts.
func WithDormantDuration(d time.Duration) EarOption {
	return func(e *Ear) { e.dormantDuration = d }
}

// WithWakeHook is called when the wake word is heard, before listening
// for the command. Typically it stops playback.
func WithWakeHook(fn func()) EarOption {
	return func(e *Ear) { e.onWake = fn }
}

// WithSpeaker lets the ear skip clips recorded while the speaker was
// talking, so it doesn't hear its own prayers.
func WithSpeaker(b Busy) EarOption {
	return func(e *Ear) { e.speaker = b }
}

// Ear provides wake-word-triggered voice commands using a local Whisper
// model.
//
// Lifecycle:
//  1. DORMANT: records short clips and checks for a wake word.
//  2. LISTENING: wake word heard, the wake hook runs, then longer chunks
//     are recorded until silence or timeout.
//  3. The accumulated text (minus the wake word) is sent on C() and the
//     ear goes back to dormant.
type Ear struct {
	whisperBin string
	modelPath  string
	tempDir    string
	log        *logger.Logger
	speaker    Busy
	onWake     func()

	wakeWords       []string
	recordDuration  time.Duration
	dormantDuration time.Duration
	listenTimeout   time.Duration

	mu     sync.Mutex
	muted  bool
	state  earState
	textCh chan string
}

// NewEar creates a wake-word-triggered voice input listener.
func NewEar(whisperBin, modelPath string, log *logger.Logger, opts ...EarOption) *Ear {
	e := &Ear{
		whisperBin:      whisperBin,
		modelPath:       modelPath,
		tempDir:         ".rosario-stt",
		log:             log,
		wakeWords:       defaultWakeWords,
		recordDuration:  1 * time.Second,
		dormantDuration: 3 * time.Second,
		listenTimeout:   10 * time.Second,
		state:           earDormant,
		textCh:          make(chan string, 8),
	}
	for _, opt := range opts {
		opt(e)
	}

	if _, err := exec.LookPath(e.whisperBin); err != nil {
		log.Error("ear: whisper binary %q not found in PATH: %v", e.whisperBin, err)
	}

	return e
}

// C returns the channel that receives transcribed commands.
func (e *Ear) C() <-chan string {
	return e.textCh
}

// Mute temporarily disables listening.
func (e *Ear) Mute() {
	e.mu.Lock()
	e.muted = true
	e.mu.Unlock()
	e.log.Debug("ear: muted")
}

// Unmute re-enables listening.
func (e *Ear) Unmute() {
	e.mu.Lock()
	e.muted = false
	e.mu.Unlock()
	e.log.Debug("ear: unmuted")
}

func (e *Ear) isMuted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// Run starts the listening loop. Blocks until ctx is cancelled.
func (e *Ear) Run(ctx context.Context) {
	e.log.Info("ear: started (dormant=%s, active=%s, timeout=%s, wake=%v)",
		e.dormantDuration, e.recordDuration, e.listenTimeout, e.wakeWords)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("ear: stopped")
			return
		default:
		}

		if e.isMuted() {
			sleep(ctx, 200*time.Millisecond)
			continue
		}

		switch e.getState() {
		case earDormant:
			e.doDormant(ctx)
		case earListening:
			e.doListening(ctx)
		}
	}
}

func (e *Ear) getState() earState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Ear) setState(s earState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Ear) speaking() bool {
	return e.speaker != nil && e.speaker.IsSpeaking()
}

// ── Dormant mode ─────────────────────────────────────────────────

func (e *Ear) doDormant(ctx context.Context) {
	text := e.recordChunk(ctx, e.dormantDuration)

	text = cleanTranscription(text)
	if text == "" {
		return
	}
	e.log.Debug("ear/dormant: heard %q", text)

	remaining, found := e.stripWakeWord(text)
	if !found {
		// Prayers spoken by the speaker end up here too; drop them.
		return
	}

	e.log.Info("ear: wake word detected in %q", text)
	if e.onWake != nil {
		e.onWake()
	}

	// Wake word and command in one breath ("rosario siguiente").
	remaining = cleanTranscription(remaining)
	if remaining != "" && !isJustPunctuation(remaining) {
		e.send(ctx, remaining)
		return
	}

	e.setState(earListening)
}

// ── Active listening mode ────────────────────────────────────────

// doListening records chunks until the user stops talking or the listen
// timeout expires, then sends the accumulated text.
func (e *Ear) doListening(ctx context.Context) {
	e.log.Info("ear: listening...")
	defer e.setState(earDormant)

	deadline := time.After(e.listenTimeout)
	var parts []string
	emptyRuns := 0
	heard := false
	// Before the user starts talking, allow more silence.
	const graceEmpty = 4
	const postSpeechEmpty = 2

loop:
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			e.log.Debug("ear: listen timeout reached")
			break loop
		default:
		}

		chunk := cleanTranscription(e.recordChunk(ctx, e.recordDuration))
		if chunk == "" {
			emptyRuns++
			maxEmpty := graceEmpty
			if heard {
				maxEmpty = postSpeechEmpty
			}
			if emptyRuns >= maxEmpty {
				e.log.Debug("ear: silence detected, ending listen (heard_speech=%v)", heard)
				break loop
			}
			continue
		}

		emptyRuns = 0
		heard = true
		if chunk = e.removeWakeWords(chunk); chunk != "" {
			e.log.Debug("ear/listen: chunk: %q", chunk)
			parts = append(parts, chunk)
		}
	}

	combined := strings.TrimSpace(strings.Join(parts, " "))
	if combined == "" {
		e.log.Debug("ear: listening ended with no input")
		return
	}
	e.send(ctx, combined)
}

func (e *Ear) send(ctx context.Context, text string) {
	e.log.Info("ear: heard command: %q", text)
	select {
	case e.textCh <- text:
	case <-ctx.Done():
	}
}

// ── Wake word matching ───────────────────────────────────────────

// stripWakeWord reports whether text contains a wake word and returns
// what follows the first one found.
func (e *Ear) stripWakeWord(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, w := range e.wakeWords {
		wl := strings.ToLower(w)
		if idx := strings.Index(lower, wl); idx >= 0 {
			rest := strings.TrimLeft(text[idx+len(wl):], " ,.!?¡¿\n\r\t")
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// removeWakeWords drops every wake word from text, used when the user
// repeats it mid-command.
func (e *Ear) removeWakeWords(text string) string {
	lower := strings.ToLower(text)
	for _, w := range e.wakeWords {
		lower = strings.ReplaceAll(lower, strings.ToLower(w), "")
	}
	return strings.Join(strings.Fields(lower), " ")
}

func isJustPunctuation(s string) bool {
	return strings.Trim(s, " ,.!?¡¿") == ""
}

// ── Recording ────────────────────────────────────────────────────

// recordChunk does one recording cycle and returns the transcribed text.
// A clip that overlapped our own speech is discarded.
func (e *Ear) recordChunk(ctx context.Context, duration time.Duration) string {
	if e.speaking() {
		sleep(ctx, 200*time.Millisecond)
		return ""
	}

	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := e.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		e.whisperBin,
		e.modelPath,
		e.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		e.log.Error("ear: transcriber init failed: %v", err)
		sleep(ctx, 2*time.Second)
		return ""
	}

	if err := t.Start(); err != nil {
		e.log.Error("ear: recording start failed: %v", err)
		sleep(ctx, 2*time.Second)
		return ""
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
		t.Stop()
		wg.Wait()
		return ""
	}

	t.Stop()
	wg.Wait()

	if e.speaking() {
		e.log.Debug("ear: discarding clip recorded over speech")
		return ""
	}
	return result
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// ── Transcription cleanup ────────────────────────────────────────

// junkPatterns are whisper artifacts stripped from anywhere in the text.
var junkPatterns = []string{
	"[BLANK_AUDIO]",
	"[BLANK AUDIO]",
	"[silence]",
	"[Music]",
	"[música]",
	"(silence)",
	"(silencio)",
	"(no speech)",
	"(music)",
	"(música)",
	"(inaudible)",
	"(unintelligible)",
}

// hallucinations are whole transcriptions whisper invents on silence.
var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"gracias.",
	"gracias por ver el video.",
	"subtítulos realizados por la comunidad de amara.org",
}

// cleanTranscription normalizes whitespace and removes whisper artifacts
// such as "[BLANK_AUDIO]", "(silencio)" and timestamp prefixes. Known
// hallucinations come back as "".
func cleanTranscription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = timestampPrefix.ReplaceAllString(s, "")

	for _, j := range junkPatterns {
		s = strings.ReplaceAll(s, j, "")
		s = strings.ReplaceAll(s, strings.ToLower(j), "")
		s = strings.ReplaceAll(s, strings.ToUpper(j), "")
	}
	s = envAnnotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if h == lower {
			return ""
		}
	}
	return s
}
