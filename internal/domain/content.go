package domain

// FixedPrayers holds every non-mystery text of one language. Texts and
// Titles are keyed by StepType tag.
type FixedPrayers struct {
	Texts               map[string]string `yaml:"texts"`
	Titles              map[string]string `yaml:"titles"`
	FinalHailMaryIntros []string          `yaml:"final_hail_mary_intros"`
	Litany              LitanyData        `yaml:"litany"`
	Labels              Labels            `yaml:"labels"`
}

// Text returns the prayer text for t, or "".
func (f *FixedPrayers) Text(t StepType) string { return f.Texts[t.String()] }

// Title returns the display title for t, or "".
func (f *FixedPrayers) Title(t StepType) string { return f.Titles[t.String()] }

// Labels are the short localized strings used to compose titles and
// narration.
type Labels struct {
	Ordinals        []string `yaml:"ordinals"`
	OrdinalFallback string   `yaml:"ordinal_fallback"`
	Mystery         string   `yaml:"mystery"`
	HailMary        string   `yaml:"hail_mary"`
	Reflection      string   `yaml:"reflection"`
	Fruit           string   `yaml:"fruit"`
	MeditatingOn    string   `yaml:"meditating_on"`
	SacredPrayers   string   `yaml:"sacred_prayers"`
	Complete        string   `yaml:"complete"`
}
