// Package speech synthesizes, caches and plays spoken prayers, and
// listens for voice commands. This file holds every user-facing line
// that is not prayer content, in both languages; keep them short.
package speech

import (
	"fmt"
	"math/rand"

	"github.com/hammamikhairi/rosario/internal/domain"
)

type catalog struct {
	welcome       string
	resumed       string
	prayAgain     string
	stopped       string
	continuousOn  string
	continuousOff string
	language      string
	unknown       string
	status        string
	atStart       string
	atEnd         string
	noStep        string
	fruitOn       string
	fruitOff      string
	highlightOn   string
	highlightOff  string
	reset         string
	speechError   string
	bye           string
	help          string
	thinking      string
	listening     []string
}

var catalogs = map[domain.Language]catalog{
	domain.English: {
		welcome:       "%s. Press space to pray.",
		resumed:       "Resuming at step %d of %d.",
		prayAgain:     `Say "reset" to pray again.`,
		stopped:       "Stopped.",
		continuousOn:  "Continuous mode on.",
		continuousOff: "Continuous mode off.",
		language:      "Language: English.",
		unknown:       "I didn't understand %q. Say help for the commands.",
		status:        "%s, step %d of %d, %.0f%% done.",
		atStart:       "Already at the first step.",
		atEnd:         "Already at the last step.",
		noStep:        "There is no step %s. Choose 1 to %d.",
		fruitOn:       "Fruit announcements on.",
		fruitOff:      "Fruit announcements off.",
		highlightOn:   "Highlighting on.",
		highlightOff:  "Highlighting off.",
		reset:         "Progress cleared. Back to the beginning.",
		speechError:   "Speech failed. Press space to try again.",
		bye:           "God bless.",
		help: "next, back, play, stop, continuous, jump N, language es, " +
			"fruit, highlight, status, reset, quit",
		thinking:  "One moment.",
		listening: []string{"Listening.", "Yes?", "I'm here."},
	},
	domain.Spanish: {
		welcome:       "%s. Pulsa espacio para rezar.",
		resumed:       "Continuando en el paso %d de %d.",
		prayAgain:     `Di "reiniciar" para rezar de nuevo.`,
		stopped:       "Detenido.",
		continuousOn:  "Modo continuo activado.",
		continuousOff: "Modo continuo desactivado.",
		language:      "Idioma: español.",
		unknown:       "No entendí %q. Di ayuda para ver los comandos.",
		status:        "%s, paso %d de %d, %.0f%% completado.",
		atStart:       "Ya estás en el primer paso.",
		atEnd:         "Ya estás en el último paso.",
		noStep:        "No existe el paso %s. Elige de 1 a %d.",
		fruitOn:       "Anuncio del fruto activado.",
		fruitOff:      "Anuncio del fruto desactivado.",
		highlightOn:   "Resaltado activado.",
		highlightOff:  "Resaltado desactivado.",
		reset:         "Progreso borrado. De vuelta al principio.",
		speechError:   "Falló la voz. Pulsa espacio para reintentar.",
		bye:           "Dios te bendiga.",
		help: "siguiente, anterior, reproducir, parar, continuo, ir N, idioma en, " +
			"fruto, resaltar, estado, reiniciar, salir",
		thinking:  "Un momento.",
		listening: []string{"Te escucho.", "¿Sí?", "Aquí estoy."},
	},
}

func lines(lang domain.Language) catalog {
	if c, ok := catalogs[lang]; ok {
		return c
	}
	return catalogs[domain.English]
}

// ── Session ──────────────────────────────────────────────────────

func LineWelcome(lang domain.Language, mysteryName string) string {
	return fmt.Sprintf(lines(lang).welcome, mysteryName)
}

func LineResumed(lang domain.Language, step, total int) string {
	return fmt.Sprintf(lines(lang).resumed, step, total)
}

// LinePrayAgain follows the closing step, which speaks its own farewell.
func LinePrayAgain(lang domain.Language) string { return lines(lang).prayAgain }

func LineStopped(lang domain.Language) string { return lines(lang).stopped }

func LineReset(lang domain.Language) string { return lines(lang).reset }

func LineBye(lang domain.Language) string { return lines(lang).bye }

func LineSpeechError(lang domain.Language) string { return lines(lang).speechError }

// ── Navigation ───────────────────────────────────────────────────

func LineAtStart(lang domain.Language) string { return lines(lang).atStart }

func LineAtEnd(lang domain.Language) string { return lines(lang).atEnd }

// LineNoStep rejects a jump target; step is echoed as typed.
func LineNoStep(lang domain.Language, step string, total int) string {
	return fmt.Sprintf(lines(lang).noStep, step, total)
}

// LineStatus summarizes where the user is.
func LineStatus(lang domain.Language, mysteryName string, step, total int, progress float64) string {
	return fmt.Sprintf(lines(lang).status, mysteryName, step, total, progress)
}

// ── Toggles ──────────────────────────────────────────────────────

func LineContinuous(lang domain.Language, on bool) string {
	if on {
		return lines(lang).continuousOn
	}
	return lines(lang).continuousOff
}

func LineFruit(lang domain.Language, on bool) string {
	if on {
		return lines(lang).fruitOn
	}
	return lines(lang).fruitOff
}

func LineHighlight(lang domain.Language, on bool) string {
	if on {
		return lines(lang).highlightOn
	}
	return lines(lang).highlightOff
}

// LineLanguage confirms a switch, in the new language.
func LineLanguage(lang domain.Language) string { return lines(lang).language }

// ── Input ────────────────────────────────────────────────────────

func LineUnknown(lang domain.Language, input string) string {
	return fmt.Sprintf(lines(lang).unknown, input)
}

func LineHelp(lang domain.Language) string { return lines(lang).help }

// LineThinking is shown while the AI agent works on free-form input.
func LineThinking(lang domain.Language) string { return lines(lang).thinking }

// LineListening returns a random acknowledgment for when the wake word
// is detected.
func LineListening(lang domain.Language) string {
	l := lines(lang).listening
	return l[rand.Intn(len(l))]
}
