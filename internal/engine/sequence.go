package engine

import (
	"fmt"

	"github.com/hammamikhairi/rosario/internal/domain"
)

const (
	decadeCount        = 5
	hailMarysPerDecade = 10
	finalHailMarys     = 4
)

// openingSteps precede the first decade, so the first announcement sits at
// index 5. That fixes the opening at five steps and the Rosary at 91.
var openingSteps = []domain.StepType{
	domain.StepSignOfCrossStart,
	domain.StepApostlesCreed,
	domain.StepActOfContrition,
	domain.StepInvocationHolySpirit,
	domain.StepIntention,
}

var sacredSteps = []domain.StepType{
	domain.StepSignOfCrossStart,
	domain.StepOurFather,
	domain.StepHailMary,
	domain.StepGloryBe,
	domain.StepApostlesCreed,
	domain.StepHailHolyQueen,
	domain.StepMemorare,
	domain.StepStMichael,
	domain.StepGuardianAngel,
	domain.StepSignOfCrossEnd,
}

// BuildRosary flattens the full Rosary for one mystery set and language.
// The result depends only on its inputs.
func BuildRosary(content domain.ContentProvider, mystery domain.MysteryType, lang domain.Language) ([]domain.Step, error) {
	if !mystery.Valid() {
		return nil, fmt.Errorf("building rosary: %w: %q", domain.ErrInvalidMystery, mystery)
	}
	fp, err := content.FixedPrayers(lang)
	if err != nil {
		return nil, fmt.Errorf("building rosary: %w", err)
	}
	set, err := content.Mysteries(lang, mystery)
	if err != nil {
		return nil, fmt.Errorf("building rosary: %w", err)
	}
	meta, err := content.MysteryMeta(mystery)
	if err != nil {
		return nil, fmt.Errorf("building rosary: %w", err)
	}

	intro, closing := content.IntroImage(), content.ClosingImage()
	steps := make([]domain.Step, 0, rosaryLength)

	for _, t := range openingSteps {
		steps = append(steps, fixedStep(fp, t, intro))
	}

	for n := 1; n <= decadeCount; n++ {
		decade := set.Decade(n)
		if decade == nil {
			return nil, fmt.Errorf("building rosary: %s decade %d: %w", mystery, n, domain.ErrMalformedContent)
		}
		image := ""
		if ref := meta.Ref(n); ref != nil {
			image = ref.ImageURL
		}

		steps = append(steps, domain.Step{
			Type:         domain.StepDecadeAnnouncement,
			Title:        fmt.Sprintf("%s %s: %s", ordinal(fp.Labels, n), fp.Labels.Mystery, decade.Title),
			Text:         decade.Reflection,
			DecadeNumber: n,
			ImageURL:     image,
		})
		steps = append(steps, decadeStep(fixedStep(fp, domain.StepOurFather, image), n))
		for k := 1; k <= hailMarysPerDecade; k++ {
			s := decadeStep(fixedStep(fp, domain.StepHailMary, image), n)
			s.Title = fmt.Sprintf("%s %d/%d", fp.Labels.HailMary, k, hailMarysPerDecade)
			s.HailMaryNumber = k
			steps = append(steps, s)
		}
		steps = append(steps,
			decadeStep(fixedStep(fp, domain.StepGloryBe, image), n),
			decadeStep(fixedStep(fp, domain.StepJaculatory, image), n),
			decadeStep(fixedStep(fp, domain.StepFatimaPrayer, image), n),
		)
	}

	steps = append(steps, fixedStep(fp, domain.StepFinalJaculatory, closing))
	for k := 1; k <= finalHailMarys; k++ {
		text := ""
		if k <= len(fp.FinalHailMaryIntros) {
			text = fp.FinalHailMaryIntros[k-1]
		}
		steps = append(steps, domain.Step{
			Type:                domain.StepFinalHailMaryIntro,
			Title:               fmt.Sprintf("%s %d/%d", fp.Title(domain.StepFinalHailMaryIntro), k, finalHailMarys),
			Text:                text,
			FinalHailMaryNumber: k,
			ImageURL:            closing,
		})
	}
	steps = append(steps, fixedStep(fp, domain.StepHailHolyQueen, closing))

	litany := fixedStep(fp, domain.StepLitany, closing)
	litany.Litany = &fp.Litany
	steps = append(steps, litany)

	steps = append(steps,
		fixedStep(fp, domain.StepUnderYourProtection, closing),
		fixedStep(fp, domain.StepFinalCollect, closing),
		fixedStep(fp, domain.StepSignOfCrossEnd, closing),
		fixedStep(fp, domain.StepComplete, closing),
	)
	return steps, nil
}

// rosaryLength is the number of steps BuildRosary produces.
var rosaryLength = len(openingSteps) +
	decadeCount*(1+1+hailMarysPerDecade+1+1+1) +
	(1 + finalHailMarys + 1 + 1 + 1 + 1 + 1) +
	1

// BuildSacred flattens the fixed Sacred Prayers sequence for a language.
func BuildSacred(content domain.ContentProvider, lang domain.Language) ([]domain.Step, error) {
	fp, err := content.FixedPrayers(lang)
	if err != nil {
		return nil, fmt.Errorf("building sacred prayers: %w", err)
	}
	intro, closing := content.IntroImage(), content.ClosingImage()

	steps := make([]domain.Step, 0, len(sacredSteps)+1)
	for _, t := range sacredSteps {
		steps = append(steps, fixedStep(fp, t, intro))
	}
	done := fixedStep(fp, domain.StepComplete, closing)
	done.Text = fp.Labels.Complete
	return append(steps, done), nil
}

func fixedStep(fp *domain.FixedPrayers, t domain.StepType, image string) domain.Step {
	return domain.Step{
		Type:     t,
		Title:    fp.Title(t),
		Text:     fp.Text(t),
		ImageURL: image,
	}
}

func decadeStep(s domain.Step, n int) domain.Step {
	s.DecadeNumber = n
	return s
}

// ordinal spells out n for narration, falling back to the numeric format
// past the known words.
func ordinal(l domain.Labels, n int) string {
	if n >= 1 && n <= len(l.Ordinals) {
		return l.Ordinals[n-1]
	}
	format := l.OrdinalFallback
	if format == "" {
		format = "%dth"
	}
	return fmt.Sprintf(format, n)
}
