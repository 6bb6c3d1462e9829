// Package domain defines the core types and interfaces for the rosary
// assistant. All other packages depend on domain; domain depends on nothing
// but the standard library and x/text.
package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// StepType classifies a step of the flattened prayer sequence.
type StepType int

const (
	StepSignOfCrossStart StepType = iota
	StepApostlesCreed
	StepActOfContrition
	StepInvocationHolySpirit
	StepIntention
	StepDecadeAnnouncement
	StepOurFather
	StepHailMary
	StepGloryBe
	StepJaculatory
	StepFatimaPrayer
	StepFinalJaculatory
	StepFinalHailMaryIntro
	StepHailHolyQueen
	StepLitany
	StepUnderYourProtection
	StepFinalCollect
	StepSignOfCrossEnd
	StepMemorare
	StepStMichael
	StepGuardianAngel
	StepComplete
)

var stepTypeNames = map[StepType]string{
	StepSignOfCrossStart:     "sign_of_cross_start",
	StepApostlesCreed:        "apostles_creed",
	StepActOfContrition:      "act_of_contrition",
	StepInvocationHolySpirit: "invocation_holy_spirit",
	StepIntention:            "intention_placeholder",
	StepDecadeAnnouncement:   "decade_announcement",
	StepOurFather:            "our_father",
	StepHailMary:             "hail_mary",
	StepGloryBe:              "glory_be",
	StepJaculatory:           "jaculatory",
	StepFatimaPrayer:         "fatima_prayer",
	StepFinalJaculatory:      "final_jaculatory",
	StepFinalHailMaryIntro:   "final_hail_mary_intro",
	StepHailHolyQueen:        "hail_holy_queen",
	StepLitany:               "litany_of_loreto",
	StepUnderYourProtection:  "under_your_protection",
	StepFinalCollect:         "final_collect",
	StepSignOfCrossEnd:       "sign_of_cross_end",
	StepMemorare:             "memorare",
	StepStMichael:            "st_michael_prayer",
	StepGuardianAngel:        "guardian_angel_prayer",
	StepComplete:             "complete",
}

// String returns the snake_case tag of the step type.
func (t StepType) String() string {
	if name, ok := stepTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// StepTypeFromString converts a snake_case tag to a StepType.
func StepTypeFromString(name string) (StepType, bool) {
	for t, n := range stepTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Step is the atomic unit of the flattened prayer sequence. Zero values in
// the optional fields mean "not applicable".
type Step struct {
	Type                StepType
	Title               string
	Text                string
	DecadeNumber        int // 1-5
	HailMaryNumber      int // 1-10
	FinalHailMaryNumber int // 1-4
	Litany              *LitanyData
	ImageURL            string
}

// InDecade reports whether the step belongs to one of the five decades.
func (s Step) InDecade() bool { return s.DecadeNumber > 0 }

// ParagraphBreak separates paragraphs inside a step's text.
const ParagraphBreak = "\n\n"

// ── Language ─────────────────────────────────────────────────────

// Language is a supported content language.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

// Languages lists the supported languages in display order.
var Languages = []Language{English, Spanish}

var languageMatcher = language.NewMatcher([]language.Tag{language.English, language.Spanish})

// ParseLanguage resolves a BCP 47 tag or a plain name ("es-MX", "en_US",
// "Spanish", "español") to a supported Language.
func ParseLanguage(s string) (Language, error) {
	raw := strings.TrimSpace(strings.ToLower(s))
	switch raw {
	case "":
		return "", fmt.Errorf("%w: empty", ErrInvalidLanguage)
	case "english", "inglés", "ingles":
		return English, nil
	case "spanish", "español", "espanol":
		return Spanish, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, s)
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf == language.No {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, s)
	}
	return Languages[idx], nil
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool { return l == English || l == Spanish }

// Other returns the other supported language.
func (l Language) Other() Language {
	if l == Spanish {
		return English
	}
	return Spanish
}

// ── Mystery sets ─────────────────────────────────────────────────

// MysteryType is one of the four canonical mystery sets.
type MysteryType string

const (
	Joyful    MysteryType = "joyful"
	Sorrowful MysteryType = "sorrowful"
	Glorious  MysteryType = "glorious"
	Luminous  MysteryType = "luminous"
)

// MysteryTypes lists the four sets in canonical order.
var MysteryTypes = []MysteryType{Joyful, Sorrowful, Glorious, Luminous}

// Valid reports whether m is one of the four canonical sets.
func (m MysteryType) Valid() bool {
	switch m {
	case Joyful, Sorrowful, Glorious, Luminous:
		return true
	}
	return false
}

// ParseMysteryType converts a tag to a MysteryType.
func ParseMysteryType(s string) (MysteryType, error) {
	m := MysteryType(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMystery, s)
	}
	return m, nil
}

// MysteryForDay returns the set traditionally prayed on the given weekday.
func MysteryForDay(d time.Weekday) MysteryType {
	switch d {
	case time.Monday, time.Saturday:
		return Joyful
	case time.Tuesday, time.Friday:
		return Sorrowful
	case time.Thursday:
		return Luminous
	default:
		return Glorious
	}
}
