package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/rosario/internal/display"
	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/gpt"
	"github.com/hammamikhairi/rosario/internal/highlight"
	"github.com/hammamikhairi/rosario/internal/logger"
	"github.com/hammamikhairi/rosario/internal/playback"
	"github.com/hammamikhairi/rosario/internal/progress"
	"github.com/hammamikhairi/rosario/internal/speech"
)

// screen is the part of display.UI the session writes to.
type screen interface {
	PrintStep(text string)
	PrintPrayer(text string)
	PrintHint(text string)
	PrintChat(text string)
	PrintVoice(text string)
	Refresh()
}

var _ screen = (*display.UI)(nil)

// cliApp routes user commands to the playback coordinator.
type cliApp struct {
	coord    *playback.Coordinator
	tracker  *progress.Tracker
	parser   domain.CommandParser
	notifier domain.Notifier
	ticker   *highlight.Ticker
	agent    *gpt.Agent     // nil when AI is disabled
	talker   domain.Speaker // speaks answers; nil without TTS
	screen   screen
	input    <-chan string
	voice    <-chan string // nil when voice input is disabled
	log      *logger.Logger
}

func (a *cliApp) lang() domain.Language {
	return a.coord.Snapshot().Language
}

func (a *cliApp) say(ctx context.Context, msg string) {
	if err := a.notifier.Notify(ctx, msg); err != nil {
		a.log.Error("notify: %v", err)
	}
}

// status feeds the status bar.
func (a *cliApp) status() display.Status {
	if a.coord == nil {
		return display.Status{Word: -1}
	}
	snap := a.coord.Snapshot()
	s := display.Status{
		Mystery:    snap.Mystery,
		Title:      snap.Step.Title,
		Step:       snap.Index + 1,
		Total:      snap.Total,
		Progress:   snap.Progress,
		Playing:    snap.Playing,
		Continuous: snap.Continuous,
		Language:   string(snap.Language),
		Word:       -1,
	}
	if h, ok := a.ticker.Current(); ok && snap.Playing {
		s.Words, s.Word = h.Words, h.Word
	}
	return s
}

// ── Coordinator hooks ────────────────────────────────────────────

func (a *cliApp) stepChanged(s playback.Snapshot) {
	a.ticker.Clear()
	a.showStep(s)
	a.screen.Refresh()
}

func (a *cliApp) segmentStarted(seg domain.Segment) {
	a.ticker.Begin(seg)
	a.screen.Refresh()
}

func (a *cliApp) finished(ctx context.Context, tok playback.Token, err error) {
	a.ticker.Clear()
	defer a.screen.Refresh()

	if err != nil {
		if !errors.Is(err, domain.ErrPlaybackCancelled) {
			a.log.Error("playback %s: %v", tok, err)
			_ = a.notifier.NotifyUrgent(ctx, speech.LineSpeechError(a.lang()))
		}
		return
	}
	if snap := a.coord.Snapshot(); snap.Step.Type == domain.StepComplete && !snap.Playing {
		a.screen.PrintHint(speech.LinePrayAgain(snap.Language))
	}
}

// showStep prints the step header, its scripture reference when it
// announces a decade, and the prayer text.
func (a *cliApp) showStep(s playback.Snapshot) {
	a.screen.PrintStep(fmt.Sprintf("%d/%d  %s", s.Index+1, s.Total, s.Step.Title))
	if s.Step.Type == domain.StepDecadeAnnouncement && s.Decade != nil && s.Decade.Reference != "" {
		a.screen.PrintHint(s.Decade.Reference)
	}
	if s.Step.Text != "" {
		a.screen.PrintPrayer(s.Step.Text)
	}
}

// wake runs when the ear hears its wake word: silence the prayer so the
// command can be heard.
func (a *cliApp) wake(ctx context.Context) {
	a.coord.Stop(ctx)
	a.ticker.Clear()
	a.screen.PrintHint(speech.LineListening(a.lang()))
}

// ── Command loop ─────────────────────────────────────────────────

func (a *cliApp) greet(ctx context.Context, start int) {
	snap := a.coord.Snapshot()
	a.showStep(snap)
	if start > 0 {
		a.say(ctx, speech.LineResumed(snap.Language, snap.Index+1, snap.Total))
		return
	}
	a.say(ctx, speech.LineWelcome(snap.Language, snap.Mystery))
}

func (a *cliApp) run(ctx context.Context) {
	for {
		var input string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case input, ok = <-a.input:
			if !ok {
				return
			}
		case input = <-a.voice:
			a.screen.PrintVoice(input)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		cmd, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}
		a.log.Debug("command: %s (payload=%q)", cmd.Type, cmd.Payload)
		if !a.handle(ctx, cmd) {
			return
		}
	}
}

// handle executes one command. It returns false when the session should
// end.
func (a *cliApp) handle(ctx context.Context, cmd *domain.Command) bool {
	lang := a.lang()

	switch cmd.Type {
	case domain.CommandPlay, domain.CommandRepeat:
		a.coord.Play(ctx)

	case domain.CommandStop:
		a.coord.Stop(ctx)
		a.ticker.Clear()
		a.say(ctx, speech.LineStopped(lang))

	case domain.CommandNext:
		if !a.coord.Next(ctx) {
			a.say(ctx, speech.LineAtEnd(lang))
		}

	case domain.CommandPrevious:
		if !a.coord.Previous(ctx) {
			a.say(ctx, speech.LineAtStart(lang))
		}

	case domain.CommandJump:
		a.jump(ctx, cmd.Payload)

	case domain.CommandContinuous:
		on := !a.coord.Snapshot().Continuous
		switch cmd.Payload {
		case "on":
			on = true
		case "off":
			on = false
		}
		a.coord.SetContinuous(on)
		a.say(ctx, speech.LineContinuous(lang, on))

	case domain.CommandLanguage:
		a.setLanguage(ctx, cmd.Payload)

	case domain.CommandStatus:
		snap := a.coord.Snapshot()
		a.say(ctx, speech.LineStatus(lang, snap.Mystery, snap.Index+1, snap.Total, snap.Progress))

	case domain.CommandFruit:
		a.togglePref(ctx, func(p *domain.Preferences) bool {
			p.FruitAnnouncement = !p.FruitAnnouncement
			return p.FruitAnnouncement
		}, speech.LineFruit)

	case domain.CommandHighlight:
		on := a.togglePref(ctx, func(p *domain.Preferences) bool {
			p.DisableHighlighting = !p.DisableHighlighting
			return !p.DisableHighlighting
		}, speech.LineHighlight)
		a.ticker.SetEnabled(on)

	case domain.CommandReset:
		a.coord.Reset(ctx)
		a.say(ctx, speech.LineReset(lang))

	case domain.CommandHelp:
		a.screen.PrintHint(speech.LineHelp(lang))

	case domain.CommandQuit:
		a.coord.Stop(ctx)
		a.say(ctx, speech.LineBye(lang))
		return false

	case domain.CommandAsk:
		a.ask(ctx, cmd.Payload)

	default:
		if classified := a.classify(ctx, cmd.Payload); classified != nil {
			return a.handle(ctx, classified)
		}
		a.say(ctx, speech.LineUnknown(lang, cmd.Payload))
	}

	a.screen.Refresh()
	return true
}

func (a *cliApp) agentContext() gpt.Context {
	snap := a.coord.Snapshot()
	return gpt.Context{
		Mystery:  snap.Mystery,
		Language: snap.Language,
		Step:     snap.Step,
		Index:    snap.Index,
		Total:    snap.Total,
		Decade:   snap.Decade,
	}
}

// classify asks the agent to interpret input the keyword parser missed.
// It returns nil when there is no agent or it has no better idea.
func (a *cliApp) classify(ctx context.Context, input string) *domain.Command {
	if a.agent == nil || input == "" {
		return nil
	}
	a.screen.PrintHint(speech.LineThinking(a.lang()))

	cmd, err := a.agent.Classify(ctx, input, a.agentContext())
	if err != nil {
		a.log.Error("AI classify failed: %v", err)
		return nil
	}
	if cmd.Type == domain.CommandUnknown {
		return nil
	}
	a.log.Info("classified %q -> %s", input, cmd.Type)
	return cmd
}

// ask answers a question about the prayer. Playback stops so the answer
// is not spoken over a prayer.
func (a *cliApp) ask(ctx context.Context, question string) {
	lang := a.lang()
	if a.agent == nil {
		a.say(ctx, speech.LineUnknown(lang, question))
		return
	}
	a.coord.Stop(ctx)

	answer, err := a.agent.Ask(ctx, question, a.agentContext())
	if err != nil {
		a.log.Error("AI question failed: %v", err)
		a.say(ctx, speech.LineUnknown(lang, question))
		return
	}
	a.screen.PrintChat(answer)
	if a.talker != nil {
		go func() {
			seg := domain.Segment{Text: answer, Gender: domain.Female, Language: lang}
			if err := a.talker.Speak(ctx, []domain.Segment{seg}); err != nil {
				a.log.Debug("answer not spoken: %v", err)
			}
		}()
	}
}

// jump moves to a 1-based step number.
func (a *cliApp) jump(ctx context.Context, payload string) {
	n, err := strconv.Atoi(payload)
	total := a.coord.Snapshot().Total
	if err != nil || n < 1 || n > total {
		a.say(ctx, speech.LineNoStep(a.lang(), payload, total))
		return
	}
	a.coord.Jump(ctx, n-1)
}

// setLanguage switches to tag, or to the other language when tag is
// empty.
func (a *cliApp) setLanguage(ctx context.Context, tag string) {
	cur := a.lang()
	next := cur.Other()
	if tag != "" {
		l, err := domain.ParseLanguage(tag)
		if err != nil {
			a.say(ctx, speech.LineUnknown(cur, tag))
			return
		}
		next = l
	}
	if err := a.coord.SetLanguage(ctx, next); err != nil {
		a.log.Error("switching language: %v", err)
		_ = a.notifier.NotifyUrgent(ctx, err.Error())
		return
	}
	a.say(ctx, speech.LineLanguage(next))
}

// togglePref flips one stored preference with flip, hands the result to
// the coordinator, and confirms with line. It returns the new state.
func (a *cliApp) togglePref(ctx context.Context, flip func(*domain.Preferences) bool, line func(domain.Language, bool) string) bool {
	p, err := a.tracker.Preferences(ctx)
	if err != nil {
		a.log.Warn("loading preferences: %v", err)
	}
	on := flip(&p)
	if err := a.tracker.SavePreferences(ctx, p); err != nil {
		a.log.Error("saving preferences: %v", err)
	}
	a.coord.SetPreferences(p)
	a.say(ctx, line(a.lang(), on))
	return on
}
