package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hammamikhairi/rosario/internal/domain"
)

// Preferences returns the stored flags; missing flags are false.
func (t *Tracker) Preferences(ctx context.Context) (domain.Preferences, error) {
	var p domain.Preferences
	var err error
	if p.FruitAnnouncement, err = t.getBool(ctx, keyFruit); err != nil {
		return p, err
	}
	if p.DisableHighlighting, err = t.getBool(ctx, keyNoHighlight); err != nil {
		return p, err
	}
	return p, nil
}

// SavePreferences stores both flags.
func (t *Tracker) SavePreferences(ctx context.Context, p domain.Preferences) error {
	if err := t.putJSON(ctx, keyFruit, p.FruitAnnouncement); err != nil {
		return err
	}
	return t.putJSON(ctx, keyNoHighlight, p.DisableHighlighting)
}

// SetPreference updates one flag by name ("fruit" or "highlight"; the
// latter stores the inverse as disable-highlighting).
func (t *Tracker) SetPreference(ctx context.Context, name string, on bool) error {
	switch name {
	case "fruit", keyFruit:
		return t.putJSON(ctx, keyFruit, on)
	case "highlight":
		return t.putJSON(ctx, keyNoHighlight, !on)
	case keyNoHighlight:
		return t.putJSON(ctx, keyNoHighlight, on)
	}
	return fmt.Errorf("unknown preference %q: %w", name, domain.ErrNotFound)
}

// LitanyRow returns the last voiced litany row, or 0.
func (t *Tracker) LitanyRow(ctx context.Context) int {
	raw, err := t.store.Get(ctx, keyLitanyLastRow)
	if err != nil {
		return 0
	}
	var row int
	if err := json.Unmarshal(raw, &row); err != nil {
		t.log.Warn("bad litany row %q: %v", raw, err)
		return 0
	}
	return row
}

// SaveLitanyRow remembers the last voiced litany row.
func (t *Tracker) SaveLitanyRow(ctx context.Context, row int) error {
	return t.putJSON(ctx, keyLitanyLastRow, row)
}

// ClearLitanyRow forgets the litany position.
func (t *Tracker) ClearLitanyRow(ctx context.Context) error {
	err := t.store.Delete(ctx, keyLitanyLastRow)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (t *Tracker) getBool(ctx context.Context, key string) (bool, error) {
	raw, err := t.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, nil
}

func (t *Tracker) putJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := t.store.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
