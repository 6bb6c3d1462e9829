// Package config resolves runtime settings from flags, ROSARIO_*
// environment variables and an optional rosario.yaml in the data
// directory, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/rosario/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// ROSARIO_LANG=es or ROSARIO_DATA_DIR=/var/lib/rosario.
const EnvPrefix = "ROSARIO"

// FileName is the optional config file looked up in the data dir.
const FileName = "rosario"

// Keys shared by flags, env vars and the config file.
const (
	KeyDataDir      = "data-dir"
	KeyLang         = "lang"
	KeyVerbose      = "verbose"
	KeyQuiet        = "quiet"
	KeyLogFile      = "log-file"
	KeyNoSpeech     = "no-speech"
	KeyNoAI         = "no-ai"
	KeyCacheDir     = "cache-dir"
	KeyDiskCache    = "disk-cache"
	KeyFruit        = "fruit"
	KeyNoHighlight  = "no-highlight"
	KeyContinuous   = "continuous"
	KeyVoice        = "voice"
	KeyWhisperBin   = "whisper-bin"
	KeyWhisperModel = "whisper-model"
	KeyRecordSecs   = "record-secs"
	KeyWordPace     = "word-pace"
	KeyAIEndpoint   = "ai-endpoint"
	KeyAIKey        = "ai-key"
	KeyAIModel      = "ai-model"
	KeyAIMaxTokens  = "ai-max-tokens"
	KeyAITimeout    = "ai-timeout"
)

// The chat endpoint and key are also read from these variables, so one
// .env serves every tool that shares the deployment.
const (
	EnvGPTChatEndpoint = "GPT_CHAT_ENDPOINT"
	EnvGPTChatKey      = "GPT_CHAT_KEY"
)

// Config is the resolved configuration.
type Config struct {
	DataDir      string        `mapstructure:"data-dir"`
	Lang         string        `mapstructure:"lang"`
	Verbose      bool          `mapstructure:"verbose"`
	Quiet        bool          `mapstructure:"quiet"`
	LogFile      string        `mapstructure:"log-file"`
	NoSpeech     bool          `mapstructure:"no-speech"`
	NoAI         bool          `mapstructure:"no-ai"`
	CacheDir     string        `mapstructure:"cache-dir"`
	DiskCache    bool          `mapstructure:"disk-cache"`
	Fruit        bool          `mapstructure:"fruit"`
	NoHighlight  bool          `mapstructure:"no-highlight"`
	Continuous   bool          `mapstructure:"continuous"`
	Voice        bool          `mapstructure:"voice"`
	WhisperBin   string        `mapstructure:"whisper-bin"`
	WhisperModel string        `mapstructure:"whisper-model"`
	RecordSecs   int           `mapstructure:"record-secs"`
	WordPace     time.Duration `mapstructure:"word-pace"`
	AIEndpoint   string        `mapstructure:"ai-endpoint"`
	AIKey        string        `mapstructure:"ai-key"`
	AIModel      string        `mapstructure:"ai-model"`
	AIMaxTokens  int           `mapstructure:"ai-max-tokens"`
	AITimeout    time.Duration `mapstructure:"ai-timeout"`

	// Voices overrides Azure voice names per language and gender, e.g.
	//
	//	voices:
	//	  es:
	//	    female: es-MX-DaliaNeural
	Voices map[string]map[string]string `mapstructure:"voices"`

	// LangSet, FruitSet and HighlightSet report whether the value was
	// chosen explicitly; otherwise the saved session or preference wins.
	LangSet      bool `mapstructure:"-"`
	FruitSet     bool `mapstructure:"-"`
	HighlightSet bool `mapstructure:"-"`
}

// AddFlags registers the persistent flags and binds them to v.
func AddFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.String(KeyDataDir, ".rosario", "directory for the database and rosario.yaml")
	fs.String(KeyLang, "en", "prayer language (en or es)")
	fs.Bool(KeyVerbose, false, "enable verbose/debug logging")
	fs.Bool(KeyQuiet, false, "disable all logging")
	fs.String(KeyLogFile, ".rosario-logs/rosario.log", "file to write logs to (use \"stderr\" to log to console)")
	fs.Bool(KeyNoSpeech, false, "disable text-to-speech even if Azure keys are set")
	fs.Bool(KeyNoAI, false, "disable the AI fallback even if GPT keys are set")
	fs.String(KeyCacheDir, ".rosario-cache", "directory for the persistent TTS audio cache")
	fs.Bool(KeyDiskCache, true, "persist TTS audio to disk")
	fs.Bool(KeyFruit, false, "announce the fruit of each mystery")
	fs.Bool(KeyNoHighlight, false, "disable word highlighting")
	fs.Bool(KeyContinuous, false, "advance to the next step automatically")
	fs.Bool(KeyVoice, false, "enable voice commands via local Whisper STT")
	fs.String(KeyWhisperBin, "whisper-cli", "path to the whisper-cpp CLI binary")
	fs.String(KeyWhisperModel, "bin/ggml-small.bin", "path to the Whisper GGML model file")
	fs.Int(KeyRecordSecs, 2, "seconds per voice recording chunk")
	fs.Duration(KeyWordPace, domain.DefaultWordPace, "estimated time per spoken word, used without speech and for highlighting")
	fs.String(KeyAIModel, "", "chat model name (not needed for Azure deployments)")
	fs.Int(KeyAIMaxTokens, 300, "reply token limit for the AI fallback")
	fs.Duration(KeyAITimeout, 20*time.Second, "how long to wait for the AI fallback")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

// Load resolves the configuration. The config file is optional; a file
// that exists but does not parse is an error.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyAIEndpoint, EnvPrefix+"_AI_ENDPOINT", EnvGPTChatEndpoint)
	_ = v.BindEnv(KeyAIKey, EnvPrefix+"_AI_KEY", EnvGPTChatKey)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString(KeyDataDir))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.LangSet = v.IsSet(KeyLang)
	cfg.FruitSet = v.IsSet(KeyFruit)
	cfg.HighlightSet = v.IsSet(KeyNoHighlight)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config.%s is required", KeyDataDir)
	}
	if _, err := domain.ParseLanguage(c.Lang); err != nil {
		return fmt.Errorf("config.%s: %w", KeyLang, err)
	}
	if c.Verbose && c.Quiet {
		return fmt.Errorf("config.%s and config.%s are mutually exclusive", KeyVerbose, KeyQuiet)
	}
	if c.RecordSecs <= 0 {
		return fmt.Errorf("config.%s must be positive", KeyRecordSecs)
	}
	if c.WordPace < 0 {
		return fmt.Errorf("config.%s must not be negative", KeyWordPace)
	}
	if c.AIMaxTokens <= 0 {
		return fmt.Errorf("config.%s must be positive", KeyAIMaxTokens)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("config.%s must be positive", KeyAITimeout)
	}
	if c.Voice && c.WhisperModel == "" {
		return fmt.Errorf("config.%s is required for voice input", KeyWhisperModel)
	}
	for lang, byGender := range c.Voices {
		if _, err := domain.ParseLanguage(lang); err != nil {
			return fmt.Errorf("config.voices.%s: %w", lang, err)
		}
		for g := range byGender {
			if _, ok := domain.GenderFromString(g); !ok {
				return fmt.Errorf("config.voices.%s has unknown gender %s", lang, g)
			}
		}
	}
	return nil
}

// Language returns the configured language. Validate has already
// accepted it.
func (c *Config) Language() domain.Language {
	l, err := domain.ParseLanguage(c.Lang)
	if err != nil {
		return domain.English
	}
	return l
}

// AIEnabled reports whether the AI fallback is both allowed and
// configured.
func (c *Config) AIEnabled() bool {
	return !c.NoAI && c.AIEndpoint != "" && c.AIKey != ""
}

// DBPath is the SQLite database in the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "rosario.db")
}
