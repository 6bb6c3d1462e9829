package speech

import (
	"github.com/hammamikhairi/rosario/internal/domain"
)

// Audio format returned by Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)

// Voices maps a language and a narrator gender to an Azure voice name.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
type Voices map[domain.Language]map[domain.Gender]string

// DefaultVoices returns the stock narrators.
func DefaultVoices() Voices {
	return Voices{
		domain.English: {
			domain.Female: "en-US-AvaNeural",
			domain.Male:   "en-US-AndrewNeural",
		},
		domain.Spanish: {
			domain.Female: "es-ES-ElviraNeural",
			domain.Male:   "es-ES-AlvaroNeural",
		},
	}
}

// For returns the voice of g in lang. It falls back to the female voice of
// lang, then to the English female voice.
func (v Voices) For(lang domain.Language, g domain.Gender) string {
	if name := v[lang][g]; name != "" {
		return name
	}
	if name := v[lang][domain.Female]; name != "" {
		return name
	}
	return v[domain.English][domain.Female]
}

// Set overrides one voice.
func (v Voices) Set(lang domain.Language, g domain.Gender, name string) {
	if v[lang] == nil {
		v[lang] = make(map[domain.Gender]string)
	}
	v[lang][g] = name
}

// locale returns the xml:lang of a voice name such as "es-ES-ElviraNeural".
func locale(voice string) string {
	if len(voice) >= 5 && voice[2] == '-' {
		return voice[:5]
	}
	return "en-US"
}
