// Package segment turns a prayer step into the ordered speech segments
// narrated for it: call/response splits, announcements, the litany rows
// and the optional fruit announcement.
package segment

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

// LitanyOpeningPause follows the first row of the initial petitions.
const LitanyOpeningPause = 600 * time.Millisecond

// splitPhrases mark where the response voice takes over. The response
// starts with the phrase itself.
var splitPhrases = map[domain.StepType]map[domain.Language]string{
	domain.StepOurFather:       {domain.English: "Give us this day", domain.Spanish: "Danos hoy"},
	domain.StepHailMary:        {domain.English: "Holy Mary", domain.Spanish: "Santa María"},
	domain.StepGloryBe:         {domain.English: "As it was", domain.Spanish: "Como era"},
	domain.StepFatimaPrayer:    {domain.English: "and lead all souls", domain.Spanish: "lleva al cielo"},
	domain.StepHailHolyQueen:   {domain.English: "Turn then", domain.Spanish: "Ea, pues"},
	domain.StepJaculatory:      {domain.English: "In life and in death", domain.Spanish: "En la vida y en la muerte"},
	domain.StepFinalJaculatory: {domain.English: "pray for us", domain.Spanish: "ruega por nosotros"},
}

// SplitPhrase returns the call/response boundary for t in lang, or "".
func SplitPhrase(t domain.StepType, lang domain.Language) string {
	return splitPhrases[t][lang]
}

// Input is everything segmentation depends on. It is supplied per call so
// that Segments stays a pure function.
type Input struct {
	Step     domain.Step
	Decade   *domain.DecadeInfo
	Language domain.Language
	Prefs    domain.Preferences

	// LitanyResumeRow skips litany rows below it.
	LitanyResumeRow int
	// OnLitanyRow runs when the call of a litany row starts.
	OnLitanyRow func(row int)
}

// Segmenter computes segments. Safe for concurrent use.
type Segmenter struct {
	labels map[domain.Language]domain.Labels
	log    *logger.Logger
}

// New creates a segmenter with the localized labels of every language.
// A language whose labels cannot be loaded narrates without them.
func New(content domain.ContentProvider, log *logger.Logger) *Segmenter {
	s := &Segmenter{labels: make(map[domain.Language]domain.Labels), log: log}
	for _, lang := range domain.Languages {
		fp, err := content.FixedPrayers(lang)
		if err != nil {
			log.Warn("no labels for %s: %v", lang, err)
			continue
		}
		s.labels[lang] = fp.Labels
	}
	return s
}

// Segments returns the narration of in.Step. It never mutates the step
// and never fails: a missing split phrase degrades to one female segment.
func (s *Segmenter) Segments(in Input) []domain.Segment {
	step := in.Step
	labels := s.labels[in.Language]

	var out []domain.Segment
	switch step.Type {
	case domain.StepDecadeAnnouncement:
		out = s.announcement(in, labels)
	case domain.StepFinalHailMaryIntro:
		out = s.paragraphs(step.Text)
	case domain.StepLitany:
		out = s.litany(in)
	default:
		out = s.split(step, in.Language)
	}

	if s.announcesFruit(in) {
		lead := domain.Segment{
			Text:   labels.MeditatingOn + " " + in.Decade.Fruit,
			Gender: domain.Female,
		}
		out = append([]domain.Segment{lead}, out...)
	}
	for i := range out {
		out[i].Language = in.Language
	}
	return out
}

func (s *Segmenter) announcesFruit(in Input) bool {
	return in.Prefs.FruitAnnouncement &&
		in.Step.Type == domain.StepHailMary &&
		in.Step.HailMaryNumber%2 == 1 &&
		in.Decade != nil && in.Decade.Fruit != ""
}

func (s *Segmenter) split(step domain.Step, lang domain.Language) []domain.Segment {
	text := norm.NFC.String(strings.TrimSpace(step.Text))
	if text == "" {
		return nil
	}
	phrase := SplitPhrase(step.Type, lang)
	if phrase == "" {
		return []domain.Segment{{Text: text, Gender: domain.Female}}
	}

	i := strings.Index(text, norm.NFC.String(phrase))
	if i <= 0 {
		s.log.Debug("split phrase %q not found in %s (%s), narrating in one voice", phrase, step.Type, lang)
		return []domain.Segment{{Text: text, Gender: domain.Female}}
	}
	return []domain.Segment{
		{Text: strings.TrimSpace(text[:i]), Gender: domain.Female},
		{Text: strings.TrimSpace(text[i:]), Gender: domain.Male},
	}
}

func (s *Segmenter) announcement(in Input, labels domain.Labels) []domain.Segment {
	parts := []string{in.Step.Title, labels.Reflection, in.Step.Text}
	if d := in.Decade; d != nil {
		if d.Fruit != "" {
			parts = append(parts, labels.Fruit+": "+d.Fruit)
		}
		if d.Scripture != "" {
			parts = append(parts, d.Scripture)
		}
		if d.Reference != "" {
			parts = append(parts, d.Reference)
		}
	}
	return []domain.Segment{{Text: joinSentences(parts), Gender: domain.Female}}
}

// paragraphs splits an invocation from its response paragraph.
func (s *Segmenter) paragraphs(text string) []domain.Segment {
	call, response, found := strings.Cut(text, domain.ParagraphBreak)
	call, response = strings.TrimSpace(call), strings.TrimSpace(response)
	if !found || call == "" || response == "" {
		whole := strings.TrimSpace(text)
		if whole == "" {
			return nil
		}
		return []domain.Segment{{Text: whole, Gender: domain.Female}}
	}
	return []domain.Segment{
		{Text: call, Gender: domain.Female},
		{Text: response, Gender: domain.Male},
	}
}

func (s *Segmenter) litany(in Input) []domain.Segment {
	lit := in.Step.Litany
	if lit == nil {
		return s.split(in.Step, in.Language)
	}

	total := lit.RowCount()
	start := in.LitanyResumeRow
	if start < 0 || start >= total {
		if start != 0 {
			s.log.Debug("litany resume row %d out of range, starting over", start)
		}
		start = 0
	}

	out := make([]domain.Segment, 0, 2*(total-start))
	for row := start; row < total; row++ {
		pair, group, _ := lit.Row(row)
		call := domain.Segment{Text: pair.Call, Gender: domain.Female}
		if in.OnLitanyRow != nil {
			row, notify := row, in.OnLitanyRow
			call.OnStart = func() { notify(row) }
		}
		if group == domain.LitanyInitialPetitions && row == lit.GroupStart(group) {
			call.PostPause = LitanyOpeningPause
		}
		out = append(out, call, domain.Segment{Text: pair.Response, Gender: domain.Male})
	}
	return out
}

// joinSentences joins the non-empty parts with period separators.
func joinSentences(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimRight(strings.TrimSpace(p), ".")
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ". ") + "."
}
