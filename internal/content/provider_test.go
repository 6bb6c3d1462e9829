package content

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(logger.New(logger.LevelOff, nil))
	require.NoError(t, err)
	return p
}

func TestEmbeddedContentLoads(t *testing.T) {
	p := newTestProvider(t)

	for _, lang := range domain.Languages {
		fp, err := p.FixedPrayers(lang)
		require.NoError(t, err)
		assert.Len(t, fp.FinalHailMaryIntros, 4)
		assert.Len(t, fp.Labels.Ordinals, 5)

		for _, m := range domain.MysteryTypes {
			set, err := p.Mysteries(lang, m)
			require.NoError(t, err, "%s/%s", lang, m)
			assert.Len(t, set.Decades, 5)
			assert.NotEmpty(t, set.Name)
		}
	}
	assert.NotEmpty(t, p.IntroImage())
	assert.NotEmpty(t, p.ClosingImage())
}

func TestLitanyShapeMatchesAcrossLanguages(t *testing.T) {
	p := newTestProvider(t)

	en, err := p.Litany(domain.English)
	require.NoError(t, err)
	es, err := p.Litany(domain.Spanish)
	require.NoError(t, err)

	enGroups, esGroups := en.Groups(), es.Groups()
	for g := range enGroups {
		assert.Len(t, esGroups[g], len(enGroups[g]), "group %s", domain.LitanyGroup(g))
	}
	assert.Equal(t, 65, en.RowCount())
}

func TestFirstJoyfulDecade(t *testing.T) {
	p := newTestProvider(t)

	set, err := p.Mysteries(domain.English, domain.Joyful)
	require.NoError(t, err)
	assert.Equal(t, "The Annunciation", set.Decade(1).Title)

	meta, err := p.MysteryMeta(domain.Joyful)
	require.NoError(t, err)
	ref := meta.Ref(1)
	require.NotNil(t, ref)
	assert.Equal(t, "Humility", ref.Fruit[domain.English])
	assert.Equal(t, "La humildad", ref.Fruit[domain.Spanish])
	assert.Equal(t, "Luke 1:38", ref.Reference[domain.English])
}

func TestUnknownKeys(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.FixedPrayers("fr")
	assert.ErrorIs(t, err, domain.ErrInvalidLanguage)

	_, err = p.Mysteries(domain.English, "cheerful")
	assert.ErrorIs(t, err, domain.ErrInvalidMystery)

	_, err = p.MysteryMeta("cheerful")
	assert.ErrorIs(t, err, domain.ErrInvalidMystery)
}

// copyEmbedded returns a writable copy of the embedded data directory.
func copyEmbedded(t *testing.T) fstest.MapFS {
	t.Helper()
	out := fstest.MapFS{}
	sub, err := fs.Sub(embedded, "data")
	require.NoError(t, err)
	entries, err := fs.ReadDir(sub, ".")
	require.NoError(t, err)
	for _, e := range entries {
		raw, err := fs.ReadFile(sub, e.Name())
		require.NoError(t, err)
		out[e.Name()] = &fstest.MapFile{Data: raw}
	}
	return out
}

func TestMalformedContentRejected(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)

	tests := []struct {
		name   string
		mutate func(fstest.MapFS)
	}{
		{"missing meta", func(m fstest.MapFS) { delete(m, "meta.yaml") }},
		{"bad yaml", func(m fstest.MapFS) {
			m["prayers_es.yaml"] = &fstest.MapFile{Data: []byte("texts: [unterminated")}
		}},
		{"missing our father", func(m fstest.MapFS) {
			src := string(m["prayers_en.yaml"].Data)
			src = strings.Replace(src, "  our_father:", "  our_father_removed:", 1)
			m["prayers_en.yaml"] = &fstest.MapFile{Data: []byte(src)}
		}},
		{"four decades", func(m fstest.MapFS) {
			src := string(m["mysteries_en.yaml"].Data)
			src = strings.Replace(src, "    - number: 5\n      title: \"The Finding", "    - number: 6\n      title: \"The Finding", 1)
			m["mysteries_en.yaml"] = &fstest.MapFile{Data: []byte(src)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := copyEmbedded(t)
			tt.mutate(fsys)
			_, err := NewFromFS(fsys, log)
			require.Error(t, err)
		})
	}
}

func TestCopiedContentLoads(t *testing.T) {
	_, err := NewFromFS(copyEmbedded(t), logger.New(logger.LevelOff, nil))
	require.NoError(t, err)
}
