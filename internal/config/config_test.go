package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/rosario/internal/domain"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs, v)
	require.NoError(t, fs.Parse(args))
	return Load(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, "--data-dir", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, domain.English, cfg.Language())
	assert.Equal(t, domain.DefaultWordPace, cfg.WordPace)
	assert.Equal(t, 2, cfg.RecordSecs)
	assert.True(t, cfg.DiskCache)
	assert.False(t, cfg.Continuous)
	assert.False(t, cfg.LangSet)
	assert.False(t, cfg.FruitSet)
	assert.False(t, cfg.HighlightSet)
	assert.Equal(t, "whisper-cli", cfg.WhisperBin)
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("ROSARIO_LANG", "es")
	t.Setenv("ROSARIO_NO_SPEECH", "true")

	cfg, err := load(t, "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, domain.Spanish, cfg.Language())
	assert.True(t, cfg.LangSet)
	assert.True(t, cfg.NoSpeech)
}

func TestFlagOverridesEnv(t *testing.T) {
	t.Setenv("ROSARIO_LANG", "en")

	cfg, err := load(t, "--data-dir", t.TempDir(), "--lang", "es-MX", "--fruit")
	require.NoError(t, err)
	assert.Equal(t, domain.Spanish, cfg.Language())
	assert.True(t, cfg.Fruit)
	assert.True(t, cfg.FruitSet)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	yml := `continuous: true
word-pace: 250ms
no-highlight: true
voices:
  es:
    female: es-MX-DaliaNeural
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rosario.yaml"), []byte(yml), 0o644))

	cfg, err := load(t, "--data-dir", dir)
	require.NoError(t, err)
	assert.True(t, cfg.Continuous)
	assert.True(t, cfg.NoHighlight)
	assert.True(t, cfg.HighlightSet)
	assert.Equal(t, 250*time.Millisecond, cfg.WordPace)
	assert.Equal(t, "es-MX-DaliaNeural", cfg.Voices["es"]["female"])
	assert.Equal(t, filepath.Join(dir, "rosario.db"), cfg.DBPath())
}

func TestAISettings(t *testing.T) {
	t.Setenv("GPT_CHAT_ENDPOINT", "https://res.openai.azure.com/chat")
	t.Setenv("GPT_CHAT_KEY", "shared")

	cfg, err := load(t, "--data-dir", t.TempDir(), "--ai-timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, "https://res.openai.azure.com/chat", cfg.AIEndpoint)
	assert.Equal(t, "shared", cfg.AIKey)
	assert.Equal(t, 5*time.Second, cfg.AITimeout)
	assert.Equal(t, 300, cfg.AIMaxTokens)
	assert.True(t, cfg.AIEnabled())

	t.Setenv("ROSARIO_AI_KEY", "own")
	cfg, err = load(t, "--data-dir", t.TempDir(), "--no-ai")
	require.NoError(t, err)
	assert.Equal(t, "own", cfg.AIKey)
	assert.False(t, cfg.AIEnabled())
}

func TestMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rosario.yaml"), []byte("continuous: [\n"), 0o644))

	_, err := load(t, "--data-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{DataDir: ".", Lang: "en", RecordSecs: 2, WordPace: time.Second, AIMaxTokens: 300, AITimeout: time.Second}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errIs  error
	}{
		{"valid", func(*Config) {}, nil},
		{"no data dir", func(c *Config) { c.DataDir = "" }, nil},
		{"bad language", func(c *Config) { c.Lang = "fr" }, domain.ErrInvalidLanguage},
		{"verbose and quiet", func(c *Config) { c.Verbose, c.Quiet = true, true }, nil},
		{"zero record secs", func(c *Config) { c.RecordSecs = 0 }, nil},
		{"negative pace", func(c *Config) { c.WordPace = -time.Second }, nil},
		{"voice without model", func(c *Config) { c.Voice = true }, nil},
		{"zero ai tokens", func(c *Config) { c.AIMaxTokens = 0 }, nil},
		{"zero ai timeout", func(c *Config) { c.AITimeout = 0 }, nil},
		{"voice language", func(c *Config) { c.Voices = map[string]map[string]string{"de": {"female": "x"}} }, domain.ErrInvalidLanguage},
		{"voice gender", func(c *Config) { c.Voices = map[string]map[string]string{"en": {"child": "x"}} }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.name == "valid" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}
