// Package conversation turns typed or spoken input into commands and
// prints notifications for the user.
package conversation

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

var _ domain.CommandParser = (*KeywordParser)(nil)

// KeywordParser matches English and Spanish input to commands using
// keywords and simple patterns. Accents and case are ignored.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex   *regexp.Regexp
	command domain.CommandType
	// payload, when set, extracts the argument from the match.
	payload func(m []string) string
}

// NewKeywordParser creates a keyword-based command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regex: regexp.MustCompile(`^(next|n|forward|siguiente|sig|adelante|avanza|avanzar)$`), command: domain.CommandNext},
		{regex: regexp.MustCompile(`^(back|previous|prev|b|anterior|atras|regresa|regresar|volver)$`), command: domain.CommandPrevious},
		{regex: regexp.MustCompile(`^(play|pray|start|go|resume|p|reproducir|rezar|reza|empezar|comenzar|continuar|reanudar)$`), command: domain.CommandPlay},
		{regex: regexp.MustCompile(`^(stop|pause|s|parar|para|detener|alto|pausa)$`), command: domain.CommandStop},
		{
			regex:   regexp.MustCompile(`^(continuous|auto|continuo|automatico)(?: (on|off|si|no))?$`),
			command: domain.CommandContinuous,
			payload: func(m []string) string { return onOff(m[2]) },
		},
		{
			regex:   regexp.MustCompile(`^(language|lang|idioma|lengua)(?: (\S+))?$`),
			command: domain.CommandLanguage,
			payload: func(m []string) string { return languageTag(m[2]) },
		},
		{
			regex:   regexp.MustCompile(`^(english|ingles|spanish|espanol)$`),
			command: domain.CommandLanguage,
			payload: func(m []string) string { return languageTag(m[1]) },
		},
		{
			regex:   regexp.MustCompile(`^(?:jump|goto|go to|step|ir|ir a|ir al|salta|saltar|saltar a|paso) (\d{1,3})$`),
			command: domain.CommandJump,
			payload: func(m []string) string { return m[1] },
		},
		{regex: regexp.MustCompile(`^\d{1,3}$`), command: domain.CommandJump, payload: func(m []string) string { return m[0] }},
		{regex: regexp.MustCompile(`^(status|where|progress|info|estado|donde|progreso)$`), command: domain.CommandStatus},
		{regex: regexp.MustCompile(`^(repeat|again|r|repetir|repite|otra vez)$`), command: domain.CommandRepeat},
		{regex: regexp.MustCompile(`^(fruit|fruits|fruto|frutos)$`), command: domain.CommandFruit},
		{regex: regexp.MustCompile(`^(highlight|highlighting|resaltar|resaltado)$`), command: domain.CommandHighlight},
		{regex: regexp.MustCompile(`^(reset|restart|reiniciar|reinicia|borrar)$`), command: domain.CommandReset},
		{regex: regexp.MustCompile(`^(quit|exit|q|bye|salir|adios)$`), command: domain.CommandQuit},
		{regex: regexp.MustCompile(`^(help|h|\?|ayuda)$`), command: domain.CommandHelp},
	}
	return p
}

// Parse converts user input into a command. Unrecognized input yields
// CommandUnknown carrying the trimmed input.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Command, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Command{Type: domain.CommandUnknown}, nil
	}

	normalized := normalize(trimmed)
	p.log.Debug("parsing input: %q (%q)", trimmed, normalized)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		cmd := &domain.Command{Type: rule.command}
		if rule.payload != nil {
			cmd.Payload = rule.payload(m)
		}
		p.log.Debug("matched command: %s %q", cmd.Type, cmd.Payload)
		return cmd, nil
	}

	p.log.Debug("no match, returning unknown command")
	return &domain.Command{Type: domain.CommandUnknown, Payload: trimmed}, nil
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize lowercases, strips accents and outer punctuation, and
// collapses spaces: "¡Siguiente!" becomes "siguiente".
func normalize(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Trim(folded, " .,!¡¿;:")
	if folded == "?" {
		return folded
	}
	folded = strings.TrimRight(folded, "?")
	return strings.Join(strings.Fields(folded), " ")
}

func onOff(word string) string {
	switch word {
	case "on", "si":
		return "on"
	case "off", "no":
		return "off"
	default:
		return ""
	}
}

// languageTag maps a spoken language name to its tag. Tags pass through
// and the empty string means "toggle".
func languageTag(word string) string {
	switch word {
	case "english", "ingles", "en":
		return string(domain.English)
	case "spanish", "espanol", "es":
		return string(domain.Spanish)
	default:
		return word
	}
}
