package domain

// Decade is the language-resolved content of one mystery.
type Decade struct {
	Number     int    `yaml:"number"`
	Title      string `yaml:"title"`
	Reflection string `yaml:"reflection"`
}

// MysterySet is the language-resolved content of a mystery set.
type MysterySet struct {
	Name    string   `yaml:"name"`
	Decades []Decade `yaml:"decades"`
}

// Decade returns the decade with the given number, or nil.
func (m *MysterySet) Decade(n int) *Decade {
	for i := range m.Decades {
		if m.Decades[i].Number == n {
			return &m.Decades[i]
		}
	}
	return nil
}

// MysteryRef is the per-decade reference data shared by both languages
// except for its translated fields.
type MysteryRef struct {
	Number    int                 `yaml:"number"`
	Fruit     map[Language]string `yaml:"fruit"`
	Scripture map[Language]string `yaml:"scripture"`
	Reference map[Language]string `yaml:"reference"`
	ImageURL  string              `yaml:"image"`
}

// MysteryMeta is the reference data of one mystery set.
type MysteryMeta struct {
	Type      MysteryType  `yaml:"type"`
	Mysteries []MysteryRef `yaml:"mysteries"`
}

// Ref returns the reference data for decade n, or nil.
func (m *MysteryMeta) Ref(n int) *MysteryRef {
	for i := range m.Mysteries {
		if m.Mysteries[i].Number == n {
			return &m.Mysteries[i]
		}
	}
	return nil
}

// DecadeInfo is the merged view of a decade exposed by the flow engine.
type DecadeInfo struct {
	Number     int
	Title      string
	Reflection string
	Fruit      string
	Scripture  string
	Reference  string
	ImageURL   string
}

// ── Litany ───────────────────────────────────────────────────────

// LitanyPair is one call/response row of the litany.
type LitanyPair struct {
	Call     string `yaml:"call"`
	Response string `yaml:"response"`
}

// LitanyGroup names one of the four fixed litany groups.
type LitanyGroup int

const (
	LitanyInitialPetitions LitanyGroup = iota
	LitanyTrinityInvocations
	LitanyMaryInvocations
	LitanyAgnusDei
)

// String returns the group's snake_case tag.
func (g LitanyGroup) String() string {
	switch g {
	case LitanyInitialPetitions:
		return "initial_petitions"
	case LitanyTrinityInvocations:
		return "trinity_invocations"
	case LitanyMaryInvocations:
		return "mary_invocations"
	case LitanyAgnusDei:
		return "agnus_dei"
	default:
		return "unknown"
	}
}

// LitanyData is the structured litany payload. Row indexes run across
// the four groups in fixed order and are derived from group lengths only.
type LitanyData struct {
	InitialPetitions   []LitanyPair `yaml:"initial_petitions"`
	TrinityInvocations []LitanyPair `yaml:"trinity_invocations"`
	MaryInvocations    []LitanyPair `yaml:"mary_invocations"`
	AgnusDei           []LitanyPair `yaml:"agnus_dei"`
}

// Groups returns the four groups in playback order, indexed by LitanyGroup.
func (l *LitanyData) Groups() [4][]LitanyPair {
	return [4][]LitanyPair{
		l.InitialPetitions,
		l.TrinityInvocations,
		l.MaryInvocations,
		l.AgnusDei,
	}
}

// RowCount returns the total number of rows across all groups.
func (l *LitanyData) RowCount() int {
	n := 0
	for _, g := range l.Groups() {
		n += len(g)
	}
	return n
}

// Row returns the pair at global row index i and the group it belongs to.
func (l *LitanyData) Row(i int) (LitanyPair, LitanyGroup, bool) {
	if i < 0 {
		return LitanyPair{}, 0, false
	}
	for g, pairs := range l.Groups() {
		if i < len(pairs) {
			return pairs[i], LitanyGroup(g), true
		}
		i -= len(pairs)
	}
	return LitanyPair{}, 0, false
}

// GroupStart returns the global row index of the first row of g.
func (l *LitanyData) GroupStart(g LitanyGroup) int {
	groups := l.Groups()
	start := 0
	for i := 0; i < int(g) && i < len(groups); i++ {
		start += len(groups[i])
	}
	return start
}
