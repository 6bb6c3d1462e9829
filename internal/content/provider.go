// Package content provides the static bilingual prayer content: fixed
// prayer texts, the litany, localized labels and the four mystery sets.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

//go:embed data/*.yaml
var embedded embed.FS

// Compile-time interface check.
var _ domain.ContentProvider = (*Provider)(nil)

const decadesPerSet = 5

// Steps whose text must be present in every language.
var requiredTexts = []domain.StepType{
	domain.StepSignOfCrossStart,
	domain.StepApostlesCreed,
	domain.StepActOfContrition,
	domain.StepInvocationHolySpirit,
	domain.StepIntention,
	domain.StepOurFather,
	domain.StepHailMary,
	domain.StepGloryBe,
	domain.StepJaculatory,
	domain.StepFatimaPrayer,
	domain.StepFinalJaculatory,
	domain.StepHailHolyQueen,
	domain.StepLitany,
	domain.StepUnderYourProtection,
	domain.StepFinalCollect,
	domain.StepSignOfCrossEnd,
	domain.StepMemorare,
	domain.StepStMichael,
	domain.StepGuardianAngel,
	domain.StepComplete,
}

type metaFile struct {
	IntroImage   string               `yaml:"intro_image"`
	ClosingImage string               `yaml:"closing_image"`
	Sets         []domain.MysteryMeta `yaml:"sets"`
}

// Provider holds the parsed content in memory. Safe for concurrent reads.
// Returned values are shared and must be treated as read-only.
type Provider struct {
	mu           sync.RWMutex
	prayers      map[domain.Language]*domain.FixedPrayers
	mysteries    map[domain.Language]map[domain.MysteryType]*domain.MysterySet
	meta         map[domain.MysteryType]*domain.MysteryMeta
	introImage   string
	closingImage string
	log          *logger.Logger
}

// New loads the content embedded in the binary.
func New(log *logger.Logger) (*Provider, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return NewFromFS(sub, log)
}

// MustNew is New for main-level wiring. Embedded content that fails to
// load is a build defect, so it panics.
func MustNew(log *logger.Logger) *Provider {
	p, err := New(log)
	if err != nil {
		panic(fmt.Sprintf("content: %v", err))
	}
	return p
}

// NewFromFS loads content files (prayers_<lang>.yaml, mysteries_<lang>.yaml,
// meta.yaml) from fsys. Use os.DirFS to override the embedded texts.
func NewFromFS(fsys fs.FS, log *logger.Logger) (*Provider, error) {
	p := &Provider{
		prayers:   make(map[domain.Language]*domain.FixedPrayers),
		mysteries: make(map[domain.Language]map[domain.MysteryType]*domain.MysterySet),
		meta:      make(map[domain.MysteryType]*domain.MysteryMeta),
		log:       log,
	}

	for _, lang := range domain.Languages {
		var fp domain.FixedPrayers
		if err := decode(fsys, "prayers_"+string(lang)+".yaml", &fp); err != nil {
			return nil, err
		}
		if err := validatePrayers(lang, &fp); err != nil {
			return nil, err
		}
		p.prayers[lang] = &fp

		sets := make(map[domain.MysteryType]*domain.MysterySet)
		if err := decode(fsys, "mysteries_"+string(lang)+".yaml", &sets); err != nil {
			return nil, err
		}
		for _, m := range domain.MysteryTypes {
			if err := validateSet(lang, m, sets[m]); err != nil {
				return nil, err
			}
		}
		p.mysteries[lang] = sets
	}

	var mf metaFile
	if err := decode(fsys, "meta.yaml", &mf); err != nil {
		return nil, err
	}
	for i := range mf.Sets {
		p.meta[mf.Sets[i].Type] = &mf.Sets[i]
	}
	for _, m := range domain.MysteryTypes {
		if err := validateMeta(m, p.meta[m]); err != nil {
			return nil, err
		}
	}
	p.introImage = mf.IntroImage
	p.closingImage = mf.ClosingImage

	log.Debug("content loaded: %d languages, %d mystery sets, %d litany rows",
		len(p.prayers), len(p.meta), p.prayers[domain.English].Litany.RowCount())
	return p, nil
}

// FixedPrayers returns every non-mystery text of lang.
func (p *Provider) FixedPrayers(lang domain.Language) (*domain.FixedPrayers, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	fp, ok := p.prayers[lang]
	if !ok {
		return nil, fmt.Errorf("prayers %q: %w", lang, domain.ErrInvalidLanguage)
	}
	return fp, nil
}

// Mysteries returns the language-resolved mystery set.
func (p *Provider) Mysteries(lang domain.Language, mystery domain.MysteryType) (*domain.MysterySet, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sets, ok := p.mysteries[lang]
	if !ok {
		return nil, fmt.Errorf("mysteries %q: %w", lang, domain.ErrInvalidLanguage)
	}
	set, ok := sets[mystery]
	if !ok {
		return nil, fmt.Errorf("mysteries %q: %w", mystery, domain.ErrInvalidMystery)
	}
	return set, nil
}

// MysteryMeta returns the per-decade reference data of a set.
func (p *Provider) MysteryMeta(mystery domain.MysteryType) (*domain.MysteryMeta, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, ok := p.meta[mystery]
	if !ok {
		return nil, fmt.Errorf("meta %q: %w", mystery, domain.ErrInvalidMystery)
	}
	return m, nil
}

// Litany returns the structured litany of lang.
func (p *Provider) Litany(lang domain.Language) (*domain.LitanyData, error) {
	fp, err := p.FixedPrayers(lang)
	if err != nil {
		return nil, err
	}
	return &fp.Litany, nil
}

// Labels returns the localized narration labels of lang.
func (p *Provider) Labels(lang domain.Language) (*domain.Labels, error) {
	fp, err := p.FixedPrayers(lang)
	if err != nil {
		return nil, err
	}
	return &fp.Labels, nil
}

// IntroImage is the art shown on opening steps.
func (p *Provider) IntroImage() string { return p.introImage }

// ClosingImage is the art shown on closing steps.
func (p *Provider) ClosingImage() string { return p.closingImage }

func decode(fsys fs.FS, name string, v any) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parsing %s: %w: %v", name, domain.ErrMalformedContent, err)
	}
	return nil
}

func validatePrayers(lang domain.Language, fp *domain.FixedPrayers) error {
	for _, t := range requiredTexts {
		if fp.Text(t) == "" {
			return fmt.Errorf("%s: missing text %s: %w", lang, t, domain.ErrMalformedContent)
		}
	}
	if len(fp.FinalHailMaryIntros) != 4 {
		return fmt.Errorf("%s: want 4 final hail mary intros, got %d: %w",
			lang, len(fp.FinalHailMaryIntros), domain.ErrMalformedContent)
	}
	for g, pairs := range fp.Litany.Groups() {
		if len(pairs) == 0 {
			return fmt.Errorf("%s: litany group %s is empty: %w",
				lang, domain.LitanyGroup(g), domain.ErrMalformedContent)
		}
	}
	if fp.Labels.Mystery == "" || fp.Labels.MeditatingOn == "" || fp.Labels.OrdinalFallback == "" {
		return fmt.Errorf("%s: incomplete labels: %w", lang, domain.ErrMalformedContent)
	}
	return nil
}

func validateSet(lang domain.Language, m domain.MysteryType, set *domain.MysterySet) error {
	if set == nil {
		return fmt.Errorf("%s: missing mystery set %s: %w", lang, m, domain.ErrMalformedContent)
	}
	if len(set.Decades) != decadesPerSet {
		return fmt.Errorf("%s/%s: want %d decades, got %d: %w",
			lang, m, decadesPerSet, len(set.Decades), domain.ErrMalformedContent)
	}
	for n := 1; n <= decadesPerSet; n++ {
		d := set.Decade(n)
		if d == nil || d.Title == "" {
			return fmt.Errorf("%s/%s: decade %d missing: %w", lang, m, n, domain.ErrMalformedContent)
		}
	}
	return nil
}

func validateMeta(m domain.MysteryType, meta *domain.MysteryMeta) error {
	if meta == nil {
		return fmt.Errorf("meta: missing set %s: %w", m, domain.ErrMalformedContent)
	}
	for n := 1; n <= decadesPerSet; n++ {
		ref := meta.Ref(n)
		if ref == nil {
			return fmt.Errorf("meta/%s: decade %d missing: %w", m, n, domain.ErrMalformedContent)
		}
		for _, lang := range domain.Languages {
			if ref.Fruit[lang] == "" {
				return fmt.Errorf("meta/%s: decade %d has no %s fruit: %w", m, n, lang, domain.ErrMalformedContent)
			}
		}
	}
	return nil
}
