// Package progress persists the daily prayer position and the user
// preferences on top of a key-value store.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

// Store keys.
const (
	rosaryPrefix     = "rosary_progress_"
	sacredKey        = "sacred_progress"
	keyFruit         = "pref_fruit_announcement"
	keyNoHighlight   = "pref_disable_highlighting"
	keyLitanyLastRow = "litany_last_row"
)

// Position is the part of a flow engine that gets persisted.
type Position interface {
	Key() string
	CurrentIndex() int
	Language() domain.Language
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used for daily reset.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker reads and writes progress records and preferences.
type Tracker struct {
	store domain.KVStore
	log   *logger.Logger
	now   func() time.Time
}

// New creates a tracker over store.
func New(store domain.KVStore, log *logger.Logger, opts ...Option) *Tracker {
	t := &Tracker{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StoreKey maps a flow key to its storage key.
func StoreKey(flowKey string) string {
	if flowKey == domain.SacredProgressKey {
		return sacredKey
	}
	return rosaryPrefix + flowKey
}

// Save overwrites the record of p's sequence with today's date.
func (t *Tracker) Save(ctx context.Context, p Position) error {
	rec := domain.Progress{
		MysteryType:      p.Key(),
		CurrentStepIndex: p.CurrentIndex(),
		Date:             t.now().Format(domain.DateLayout),
		Language:         p.Language(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := t.store.Put(ctx, StoreKey(p.Key()), raw); err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}
	t.log.Debug("saved progress %s at %d (%s)", rec.MysteryType, rec.CurrentStepIndex, rec.Language)
	return nil
}

// Load returns today's record for flowKey. A missing record yields
// domain.ErrNotFound; a record from another day yields
// domain.ErrStaleProgress and must be treated as absent.
func (t *Tracker) Load(ctx context.Context, flowKey string) (*domain.Progress, error) {
	raw, err := t.store.Get(ctx, StoreKey(flowKey))
	if err != nil {
		return nil, err
	}
	var rec domain.Progress
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding progress %s: %w", flowKey, err)
	}
	if !rec.IsCurrent(t.now()) {
		t.log.Debug("progress %s from %s is stale", flowKey, rec.Date)
		return &rec, domain.ErrStaleProgress
	}
	return &rec, nil
}

// Resume returns the index to restore for flowKey, or 0 when there is no
// usable record.
func (t *Tracker) Resume(ctx context.Context, flowKey string) int {
	rec, err := t.Load(ctx, flowKey)
	switch {
	case err == nil:
		return rec.CurrentStepIndex
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrStaleProgress):
		return 0
	default:
		t.log.Warn("ignoring progress for %s: %v", flowKey, err)
		return 0
	}
}

// Delete removes the record of flowKey. Deleting a missing record is not
// an error.
func (t *Tracker) Delete(ctx context.Context, flowKey string) error {
	err := t.store.Delete(ctx, StoreKey(flowKey))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting progress: %w", err)
	}
	t.log.Debug("deleted progress %s", flowKey)
	return nil
}

// Complete clears the finished sequence so the next session starts fresh.
func (t *Tracker) Complete(ctx context.Context, flowKey string) error {
	if err := t.Delete(ctx, flowKey); err != nil {
		return err
	}
	return t.ClearLitanyRow(ctx)
}

// List returns every stored record, stale ones included.
func (t *Tracker) List(ctx context.Context) ([]domain.Progress, error) {
	keys, err := t.store.Keys(ctx, rosaryPrefix)
	if err != nil {
		return nil, err
	}
	keys = append(keys, sacredKey)

	var out []domain.Progress
	for _, k := range keys {
		raw, err := t.store.Get(ctx, k)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec domain.Progress
		if err := json.Unmarshal(raw, &rec); err != nil {
			t.log.Warn("skipping unreadable record %s: %v", k, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Reset deletes every progress record.
func (t *Tracker) Reset(ctx context.Context) error {
	keys, err := t.store.Keys(ctx, rosaryPrefix)
	if err != nil {
		return err
	}
	for _, k := range append(keys, sacredKey) {
		if err := t.store.Delete(ctx, k); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return t.ClearLitanyRow(ctx)
}

// IsStale reports whether a record is from a day other than today.
func (t *Tracker) IsStale(rec domain.Progress) bool {
	return !rec.IsCurrent(t.now())
}

// FlowKeyOf returns the flow key of a storage key, or "" for other keys.
func FlowKeyOf(storeKey string) string {
	switch {
	case storeKey == sacredKey:
		return domain.SacredProgressKey
	case strings.HasPrefix(storeKey, rosaryPrefix):
		return strings.TrimPrefix(storeKey, rosaryPrefix)
	}
	return ""
}
