package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/rosario/internal/config"
	"github.com/hammamikhairi/rosario/internal/conversation"
	"github.com/hammamikhairi/rosario/internal/display"
	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/engine"
	"github.com/hammamikhairi/rosario/internal/gpt"
	"github.com/hammamikhairi/rosario/internal/highlight"
	"github.com/hammamikhairi/rosario/internal/playback"
	"github.com/hammamikhairi/rosario/internal/segment"
	"github.com/hammamikhairi/rosario/internal/speech"
)

func prayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pray [joyful|sorrowful|glorious|luminous|today]",
		Short: "Pray the rosary (today's mysteries by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runSession(cmd.Context(), target)
		},
	}
}

func sacredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sacred",
		Short: "Pray the Memorare, St. Michael and Guardian Angel prayers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), domain.SacredProgressKey)
		},
	}
}

// flowKeyFor resolves a command-line target to a progress key.
func flowKeyFor(target string, now time.Time) (string, error) {
	if strings.EqualFold(target, domain.SacredProgressKey) {
		return domain.SacredProgressKey, nil
	}
	m, err := resolveMystery(target, now)
	if err != nil {
		return "", err
	}
	return string(m), nil
}

// runSession is the interactive prayer: it restores today's position,
// wires speech, highlighting and the terminal UI around a playback
// coordinator, and runs until the user quits.
func runSession(parent context.Context, target string) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, log := rt.cfg, rt.log

	key, err := flowKeyFor(target, time.Now())
	if err != nil {
		return err
	}

	lang := cfg.Language()
	start := 0
	rec, err := rt.tracker.Load(ctx, key)
	switch {
	case err == nil:
		start = rec.CurrentStepIndex
		if !cfg.LangSet && rec.Language.Valid() {
			lang = rec.Language
		}
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrStaleProgress):
	default:
		log.Warn("ignoring saved progress for %s: %v", key, err)
	}

	flow, err := buildFlow(rt, key, lang, engine.WithStartIndex(start))
	if err != nil {
		return err
	}

	prefs, err := rt.tracker.Preferences(ctx)
	if err != nil {
		log.Warn("loading preferences: %v", err)
	}
	if cfg.FruitSet || cfg.HighlightSet {
		if cfg.FruitSet {
			prefs.FruitAnnouncement = cfg.Fruit
		}
		if cfg.HighlightSet {
			prefs.DisableHighlighting = cfg.NoHighlight
		}
		if err := rt.tracker.SavePreferences(ctx, prefs); err != nil {
			log.Warn("saving preferences: %v", err)
		}
	}

	speaker, mouth := newSpeaker(ctx, cfg, rt)
	if mouth != nil {
		defer mouth.Close()
	}

	ticker := highlight.New(log.Named("highlight"), highlight.WithWordPace(cfg.WordPace))
	ticker.SetEnabled(!prefs.DisableHighlighting)
	ticker.Start(ctx)
	defer ticker.Stop()

	app := &cliApp{
		tracker: rt.tracker,
		parser:  conversation.NewKeywordParser(log.Named("parser")),
		ticker:  ticker,
		agent:   newAgent(cfg, rt),
		log:     log,
	}
	if mouth != nil {
		app.talker = mouth
	}
	ui := display.NewUI(app.status)
	app.screen = ui
	app.input = ui.InputChan()

	textNotifier := conversation.NewCLINotifier(log, ui.Printf)
	app.notifier = textNotifier
	if mouth != nil {
		app.notifier = speech.NewSpeakingNotifier(textNotifier, mouth, app.lang, log.Named("notifier"))
	}

	app.coord = playback.New(ctx, flow, segment.New(rt.content, log.Named("segment")), speaker, rt.tracker, log.Named("playback"),
		playback.WithContinuous(cfg.Continuous),
		playback.WithStepHook(app.stepChanged),
		playback.WithSegmentHook(app.segmentStarted),
		playback.WithLitanyHook(func(row int) { log.Debug("litany row %d", row) }),
		playback.WithFinishedHook(func(tok playback.Token, err error) { app.finished(ctx, tok, err) }),
	)

	if cfg.Voice {
		ear, err := newEar(ctx, cfg, rt, app, mouth)
		if err != nil {
			app.coord.Close()
			return err
		}
		app.voice = ear.C()
		go ear.Run(ctx)
	}

	fmt.Println(display.RenderBanner(flow.MysteryName()))
	if app.voice != nil {
		fmt.Println(display.BannerStyle.Render(`  Voice mode on: say "Rosario" and a command, or type it.`))
	}
	fmt.Println(display.BannerStyle.Render("  Space plays or stops, arrows move, 'help' lists commands."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.greet(ctx, start)
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}

	app.coord.Stop(ctx)
	app.coord.Close()
	cancel()
	return nil
}

// newSpeaker returns the Azure-backed Mouth when credentials and an
// audio device are available, and a silent reader otherwise. The second
// result is nil in the silent case.
func newSpeaker(ctx context.Context, cfg *config.Config, rt *runtime) (domain.Speaker, *speech.Mouth) {
	log := rt.log
	silent := func() domain.Speaker {
		return speech.NewSilent(log.Named("silent"), speech.WithWordPace(cfg.WordPace))
	}
	if cfg.NoSpeech {
		return silent(), nil
	}

	key := os.Getenv(speech.EnvAzureSpeechKey)
	region := os.Getenv(speech.EnvAzureSpeechRegion)
	if key == "" || region == "" {
		log.Info("TTS disabled: set %s and %s env vars to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
		return silent(), nil
	}

	player, err := speech.NewPlayer(log.Named("player"))
	if err != nil {
		log.Error("audio player init failed, speech disabled: %v", err)
		return silent(), nil
	}

	mouth := speech.NewMouth(speech.NewAzureClient(key, region, log.Named("azure")), player, log.Named("mouth"),
		speech.WithCacheDir(cfg.CacheDir),
		speech.WithDiskWrite(cfg.DiskCache),
		speech.WithVoices(voicesFrom(cfg)),
	)
	mouth.Start(ctx)
	log.Info("TTS enabled (region=%s)", region)
	return mouth, mouth
}

// voicesFrom applies configured voice overrides to the defaults.
// Validate has already rejected unknown languages and genders.
func voicesFrom(cfg *config.Config) speech.Voices {
	v := speech.DefaultVoices()
	for tag, byGender := range cfg.Voices {
		lang, err := domain.ParseLanguage(tag)
		if err != nil {
			continue
		}
		for g, name := range byGender {
			if gender, ok := domain.GenderFromString(g); ok {
				v.Set(lang, gender, name)
			}
		}
	}
	return v
}

// newAgent returns the AI agent, or nil when disabled or unconfigured.
func newAgent(cfg *config.Config, rt *runtime) *gpt.Agent {
	if !cfg.AIEnabled() {
		if !cfg.NoAI {
			rt.log.Info("AI agent disabled: set %s and %s env vars to enable", config.EnvGPTChatKey, config.EnvGPTChatEndpoint)
		}
		return nil
	}
	rt.log.Info("AI agent enabled")
	client := gpt.NewClient(gpt.Settings{
		Endpoint:  cfg.AIEndpoint,
		Key:       cfg.AIKey,
		Model:     cfg.AIModel,
		MaxTokens: cfg.AIMaxTokens,
		Timeout:   cfg.AITimeout,
	}, rt.log.Named("gpt"))
	return gpt.NewAgent(client, rt.log.Named("agent"))
}

func newEar(ctx context.Context, cfg *config.Config, rt *runtime, app *cliApp, mouth *speech.Mouth) (*speech.Ear, error) {
	if _, err := os.Stat(cfg.WhisperModel); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s: %w", cfg.WhisperModel, err)
	}
	tempDir := ".rosario-stt"
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, err
	}

	opts := []speech.EarOption{
		speech.WithRecordDuration(time.Duration(cfg.RecordSecs) * time.Second),
		speech.WithTempDir(tempDir),
		speech.WithWakeHook(func() { app.wake(ctx) }),
	}
	if mouth != nil {
		opts = append(opts, speech.WithSpeaker(mouth))
	}
	rt.log.Info("voice input enabled (bin=%s, model=%s, chunk=%ds)", cfg.WhisperBin, cfg.WhisperModel, cfg.RecordSecs)
	return speech.NewEar(cfg.WhisperBin, cfg.WhisperModel, rt.log.Named("ear"), opts...), nil
}
