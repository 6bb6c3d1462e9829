package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/engine"
	"github.com/hammamikhairi/rosario/internal/segment"
)

// withRuntime runs fn with a ready runtime and closes it afterwards.
func withRuntime(ctx context.Context, fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

// resolveMystery maps "", "today" or a mystery tag to a mystery set.
func resolveMystery(arg string, now time.Time) (domain.MysteryType, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "today", "hoy":
		return domain.MysteryForDay(now.Weekday()), nil
	}
	return domain.ParseMysteryType(arg)
}

// buildFlow creates the engine for target: a mystery tag, "today", or
// "sacred".
func buildFlow(rt *runtime, target string, lang domain.Language, opts ...engine.Option) (engine.Flow, error) {
	if strings.EqualFold(target, domain.SacredProgressKey) {
		return engine.NewSacred(rt.content, lang, rt.log.Named("engine"), opts...)
	}
	m, err := resolveMystery(target, time.Now())
	if err != nil {
		return nil, err
	}
	return engine.NewRosary(rt.content, m, lang, rt.log.Named("engine"), opts...)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

// ── sequence ─────────────────────────────────────────────────────

func sequenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sequence [mystery|today|sacred]",
		Short: "Print the flattened step sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				target := ""
				if len(args) == 1 {
					target = args[0]
				}
				flow, err := buildFlow(rt, target, rt.cfg.Language())
				if err != nil {
					return err
				}

				tw := newTable()
				tw.SetTitle(flow.MysteryName())
				tw.AppendHeader(table.Row{"#", "Type", "Title", "Decade", "Hail Mary"})
				for i, s := range flow.Steps() {
					tw.AppendRow(table.Row{i + 1, s.Type, s.Title, blankZero(s.DecadeNumber), hailMary(s)})
				}
				tw.AppendFooter(table.Row{"", "", "", "steps", flow.TotalSteps()})
				tw.Render()
				return nil
			})
		},
	}
}

func hailMary(s domain.Step) string {
	switch {
	case s.HailMaryNumber > 0:
		return fmt.Sprintf("%d/10", s.HailMaryNumber)
	case s.FinalHailMaryNumber > 0:
		return fmt.Sprintf("final %d/4", s.FinalHailMaryNumber)
	}
	return ""
}

func blankZero(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// ── segments ─────────────────────────────────────────────────────

func segmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segments <mystery|today|sacred> <step>",
		Short: "Show the speech segments of one step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("step must be a number: %w", err)
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				flow, err := buildFlow(rt, args[0], rt.cfg.Language(), engine.WithStartIndex(n-1))
				if err != nil {
					return err
				}
				if n < 1 || n > flow.TotalSteps() {
					return fmt.Errorf("step %d out of range 1-%d", n, flow.TotalSteps())
				}

				prefs, err := rt.tracker.Preferences(ctx)
				if err != nil {
					return err
				}
				if rt.cfg.FruitSet {
					prefs.FruitAnnouncement = rt.cfg.Fruit
				}

				seg := segment.New(rt.content, rt.log.Named("segment"))
				segs := seg.Segments(segment.Input{
					Step:     flow.CurrentStep(),
					Decade:   flow.CurrentDecadeInfo(),
					Language: flow.Language(),
					Prefs:    prefs,
				})

				var total time.Duration
				tw := newTable()
				tw.SetTitle(fmt.Sprintf("%d. %s", n, flow.CurrentStep().Title))
				tw.AppendHeader(table.Row{"#", "Voice", "Rate", "Pause", "Text"})
				tw.SetColumnConfigs([]table.ColumnConfig{
					{Number: 5, WidthMax: 70, WidthMaxEnforcer: text.WrapSoft},
				})
				for i, s := range segs {
					rate := ""
					if s.Rate > 0 {
						rate = fmt.Sprintf("%.2f", s.Rate)
					}
					pause := ""
					if s.PostPause > 0 {
						pause = s.PostPause.String()
					}
					total += s.Estimate(rt.cfg.WordPace) + s.PostPause
					tw.AppendRow(table.Row{i + 1, s.Gender, rate, pause, s.Text})
				}
				tw.AppendFooter(table.Row{"", "", "", "≈", total.Round(time.Second)})
				tw.Render()
				return nil
			})
		},
	}
}

// ── progress ─────────────────────────────────────────────────────

func progressCmd() *cobra.Command {
	prg := &cobra.Command{Use: "progress", Short: "Inspect or clear saved progress"}
	prg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List saved positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				recs, err := rt.tracker.List(ctx)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Println("no saved progress")
					return nil
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Sequence", "Step", "Language", "Date", "State"})
				for _, r := range recs {
					state := "today"
					if rt.tracker.IsStale(r) {
						state = "stale"
					}
					tw.AppendRow(table.Row{r.MysteryType, r.CurrentStepIndex + 1, r.Language, r.Date, state})
				}
				tw.Render()
				return nil
			})
		},
	})
	prg.AddCommand(&cobra.Command{
		Use:   "reset [mystery|sacred]",
		Short: "Delete saved progress (all of it without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				if len(args) == 0 {
					if err := rt.tracker.Reset(ctx); err != nil {
						return err
					}
					fmt.Println("all progress cleared")
					return nil
				}
				key := strings.ToLower(args[0])
				if key != domain.SacredProgressKey {
					m, err := domain.ParseMysteryType(key)
					if err != nil {
						return err
					}
					key = string(m)
				}
				if err := rt.tracker.Delete(ctx, key); err != nil {
					return err
				}
				fmt.Printf("progress for %s cleared\n", key)
				return nil
			})
		},
	})
	return prg
}

// ── prefs ────────────────────────────────────────────────────────

func prefsCmd() *cobra.Command {
	prf := &cobra.Command{Use: "prefs", Short: "Show or change stored preferences"}
	prf.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				p, err := rt.tracker.Preferences(ctx)
				if err != nil {
					return err
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Preference", "Value"})
				tw.AppendRow(table.Row{"fruit", onOff(p.FruitAnnouncement)})
				tw.AppendRow(table.Row{"highlight", onOff(!p.DisableHighlighting)})
				tw.AppendRow(table.Row{"litany row", rt.tracker.LitanyRow(ctx)})
				tw.Render()
				return nil
			})
		},
	})
	prf.AddCommand(&cobra.Command{
		Use:   "set <fruit|highlight> <on|off>",
		Short: "Change a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				if err := rt.tracker.SetPreference(ctx, args[0], on); err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						return fmt.Errorf("unknown preference %q (use fruit or highlight)", args[0])
					}
					return err
				}
				fmt.Printf("%s %s\n", args[0], onOff(on))
				return nil
			})
		},
	})
	return prf
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1", "si", "sí":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
