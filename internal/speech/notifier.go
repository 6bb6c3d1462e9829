package speech

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

var _ domain.Notifier = (*SpeakingNotifier)(nil)

// SpeakingNotifier wraps a text notifier and also speaks urgent messages
// when the speaker is idle. Ordinary notices are only printed so they
// never talk over a prayer.
type SpeakingNotifier struct {
	text    domain.Notifier
	speaker domain.Speaker
	lang    func() domain.Language
	log     *logger.Logger
}

// NewSpeakingNotifier creates a notifier that prints and, for urgent
// messages, speaks in the language lang returns at the time.
func NewSpeakingNotifier(text domain.Notifier, speaker domain.Speaker, lang func() domain.Language, log *logger.Logger) *SpeakingNotifier {
	return &SpeakingNotifier{
		text:    text,
		speaker: speaker,
		lang:    lang,
		log:     log,
	}
}

// Notify prints the message.
func (n *SpeakingNotifier) Notify(ctx context.Context, message string) error {
	return n.text.Notify(ctx, message)
}

// NotifyUrgent prints the message and speaks it unless something is
// already playing.
func (n *SpeakingNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	if b, ok := n.speaker.(Busy); ok && b.IsSpeaking() {
		return nil
	}
	seg := domain.Segment{Text: cleanForSpeech(message), Gender: domain.Female, Language: n.lang()}
	if seg.Text == "" {
		return nil
	}
	go func() {
		if err := n.speaker.Speak(ctx, []domain.Segment{seg}); err != nil {
			n.log.Debug("notifier: not spoken: %v", err)
		}
	}()
	return nil
}

var bracketPrefix = regexp.MustCompile(`^\[[\p{L}]+\]\s*`)
var ansiCodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// cleanForSpeech strips formatting artifacts that shouldn't be spoken.
func cleanForSpeech(msg string) string {
	cleaned := ansiCodes.ReplaceAllString(msg, "")
	cleaned = bracketPrefix.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
