package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/rosario/internal/content"
	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/engine"
	"github.com/hammamikhairi/rosario/internal/logger"
	"github.com/hammamikhairi/rosario/internal/progress"
	"github.com/hammamikhairi/rosario/internal/segment"
	"github.com/hammamikhairi/rosario/internal/storage"
)

const wait = 2 * time.Second

// speakCall is one Speak invocation held open until the test completes it.
type speakCall struct {
	segs []domain.Segment
	done chan error
}

// fakeSpeaker records calls and blocks each one until released. With
// honorCtx unset it ignores cancellation, which lets a test deliver a
// completion after the generation has moved on.
type fakeSpeaker struct {
	mu         sync.Mutex
	honorCtx   bool
	startLimit int
	stops      int
	calls      []*speakCall
	started    chan *speakCall
}

func newFakeSpeaker(honorCtx bool) *fakeSpeaker {
	return &fakeSpeaker{honorCtx: honorCtx, startLimit: -1, started: make(chan *speakCall, 64)}
}

func (f *fakeSpeaker) Speak(ctx context.Context, segs []domain.Segment) error {
	f.mu.Lock()
	limit := f.startLimit
	f.mu.Unlock()

	for i, s := range segs {
		if limit >= 0 && i >= limit {
			break
		}
		if s.OnStart != nil {
			s.OnStart()
		}
	}

	call := &speakCall{segs: segs, done: make(chan error, 1)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	f.started <- call
	if f.honorCtx {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-call.done:
			return err
		}
	}
	return <-call.done
}

func (f *fakeSpeaker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

// releaseAll completes every call still waiting.
func (f *fakeSpeaker) releaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		select {
		case c.done <- nil:
		default:
		}
	}
}

func (f *fakeSpeaker) next(t *testing.T) *speakCall {
	t.Helper()
	select {
	case c := <-f.started:
		return c
	case <-time.After(wait):
		t.Fatal("speaker was not called")
		return nil
	}
}

func (f *fakeSpeaker) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.started:
		t.Fatalf("unexpected speak call with %d segments", len(c.segs))
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	coord    *Coordinator
	flow     *engine.Rosary
	speaker  *fakeSpeaker
	tracker  *progress.Tracker
	finished chan error
}

func setup(t *testing.T, honorCtx bool, opts ...Option) *harness {
	t.Helper()
	fake := newFakeSpeaker(honorCtx)
	return setupSpeaker(t, fake, fake, opts...)
}

// setupSpeaker hands speaker to the coordinator; fake is the recorder
// behind it.
func setupSpeaker(t *testing.T, fake *fakeSpeaker, speaker domain.Speaker, opts ...Option) *harness {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	p, err := content.New(log)
	require.NoError(t, err)
	flow, err := engine.NewRosary(p, domain.Joyful, domain.English, log)
	require.NoError(t, err)

	h := &harness{
		flow:     flow,
		speaker:  fake,
		tracker:  progress.New(storage.NewMemoryStore(log), log),
		finished: make(chan error, 64),
	}
	opts = append(opts, WithFinishedHook(func(_ Token, err error) { h.finished <- err }))
	h.coord = New(context.Background(), flow, segment.New(p, log), speaker, h.tracker, log, opts...)
	t.Cleanup(func() {
		h.coord.Stop(context.Background())
		h.speaker.releaseAll()
		h.coord.Close()
	})
	return h
}

func (h *harness) waitFinished(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.finished:
		return err
	case <-time.After(wait):
		t.Fatal("playback did not finish")
		return nil
	}
}

func TestManualModePlaysOnce(t *testing.T) {
	h := setup(t, true)
	ctx := context.Background()

	tok := h.coord.Play(ctx)
	assert.True(t, h.coord.Valid(tok))
	call := h.speaker.next(t)
	require.NotEmpty(t, call.segs)
	assert.True(t, h.coord.Snapshot().Playing)

	call.done <- nil
	require.NoError(t, h.waitFinished(t))

	snap := h.coord.Snapshot()
	assert.Equal(t, 0, snap.Index)
	assert.False(t, snap.Playing)
	h.speaker.none(t)
}

func TestContinuousAdvancesOneStepPerCompletion(t *testing.T) {
	var steps []int
	var mu sync.Mutex
	h := setup(t, true, WithContinuous(true), WithStepHook(func(s Snapshot) {
		mu.Lock()
		steps = append(steps, s.Index)
		mu.Unlock()
	}))
	ctx := context.Background()

	h.coord.Play(ctx)
	call := h.speaker.next(t)
	for want := 1; want <= 3; want++ {
		call.done <- nil
		require.NoError(t, h.waitFinished(t))
		call = h.speaker.next(t)
		assert.Equal(t, want, h.coord.Snapshot().Index)
		h.speaker.none(t)
	}

	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, steps)
	mu.Unlock()

	rec, err := h.tracker.Load(ctx, "joyful")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.CurrentStepIndex)
}

func TestStaleCompletionIsIgnored(t *testing.T) {
	h := setup(t, false, WithContinuous(true))
	ctx := context.Background()

	old := h.coord.Play(ctx)
	first := h.speaker.next(t)

	require.True(t, h.coord.Next(ctx))
	assert.False(t, h.coord.Valid(old))
	second := h.speaker.next(t)
	assert.Equal(t, 1, h.coord.Snapshot().Index)

	// The cancelled utterance reports completion late.
	first.done <- nil
	h.speaker.none(t)
	assert.Equal(t, 1, h.coord.Snapshot().Index)

	second.done <- nil
	require.NoError(t, h.waitFinished(t))
	h.speaker.next(t)
	assert.Equal(t, 2, h.coord.Snapshot().Index)
}

func TestStopCancelsPlayback(t *testing.T) {
	h := setup(t, true, WithContinuous(true))
	ctx := context.Background()

	h.coord.Jump(ctx, 7)
	tok := h.coord.Play(ctx)
	h.speaker.next(t)

	h.coord.Stop(ctx)
	assert.False(t, h.coord.Valid(tok))
	h.speaker.none(t)

	snap := h.coord.Snapshot()
	assert.Equal(t, 7, snap.Index)
	assert.False(t, snap.Playing)

	h.speaker.mu.Lock()
	assert.Equal(t, 1, h.speaker.stops)
	h.speaker.mu.Unlock()

	select {
	case err := <-h.finished:
		t.Fatalf("stale playback reported completion: %v", err)
	default:
	}
}

func TestSpeakErrorKeepsCursor(t *testing.T) {
	h := setup(t, true, WithContinuous(true))
	ctx := context.Background()

	h.coord.Play(ctx)
	h.speaker.next(t).done <- errors.New("voice unavailable")

	err := h.waitFinished(t)
	require.Error(t, err)
	assert.Equal(t, 0, h.coord.Snapshot().Index)
	h.speaker.none(t)

	// The same step can be retried.
	h.coord.Play(ctx)
	h.speaker.next(t).done <- nil
	require.NoError(t, h.waitFinished(t))
	h.speaker.next(t)
	assert.Equal(t, 1, h.coord.Snapshot().Index)
}

func litanyIndex(t *testing.T, f engine.Flow) int {
	t.Helper()
	for i, s := range f.Steps() {
		if s.Type == domain.StepLitany {
			return i
		}
	}
	t.Fatal("no litany step")
	return -1
}

func TestLitanyResume(t *testing.T) {
	var rows []int
	var mu sync.Mutex
	h := setup(t, true, WithLitanyHook(func(row int) {
		mu.Lock()
		rows = append(rows, row)
		mu.Unlock()
	}))
	ctx := context.Background()
	require.True(t, h.coord.Jump(ctx, litanyIndex(t, h.flow)))

	// Only the first five rows get voiced before the stop.
	h.speaker.mu.Lock()
	h.speaker.startLimit = 10
	h.speaker.mu.Unlock()

	h.coord.Play(ctx)
	first := h.speaker.next(t)
	assert.Len(t, first.segs, 2*65)
	h.coord.Stop(ctx)

	assert.Equal(t, 4, h.coord.Snapshot().LitanyRow)
	assert.Equal(t, 4, h.tracker.LitanyRow(ctx))
	mu.Lock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, rows)
	mu.Unlock()

	h.coord.Play(ctx)
	resumed := h.speaker.next(t)
	require.Len(t, resumed.segs, 2*(65-4))
	lit := h.coord.Snapshot().Step.Litany
	require.NotNil(t, lit)
	// Row 8 opens the Marian invocations.
	assert.Equal(t, lit.MaryInvocations[0].Call, resumed.segs[2*(8-4)].Text)

	resumed.done <- nil
	require.NoError(t, h.waitFinished(t))
	assert.Equal(t, 0, h.coord.Snapshot().LitanyRow)
	assert.Equal(t, 0, h.tracker.LitanyRow(ctx))
}

func TestNavigationClearsLitanyRow(t *testing.T) {
	h := setup(t, true)
	ctx := context.Background()
	require.True(t, h.coord.Jump(ctx, litanyIndex(t, h.flow)))

	h.speaker.mu.Lock()
	h.speaker.startLimit = 6
	h.speaker.mu.Unlock()
	h.coord.Play(ctx)
	h.speaker.next(t)
	h.coord.Stop(ctx)
	require.Equal(t, 2, h.coord.Snapshot().LitanyRow)

	require.True(t, h.coord.Next(ctx))
	require.True(t, h.coord.Previous(ctx))
	assert.Equal(t, 0, h.coord.Snapshot().LitanyRow)
	assert.Equal(t, 0, h.tracker.LitanyRow(ctx))
}

func TestSetLanguageRestartsInPlace(t *testing.T) {
	h := setup(t, true)
	ctx := context.Background()

	h.coord.Jump(ctx, 5)
	old := h.coord.Play(ctx)
	first := h.speaker.next(t)
	assert.Contains(t, first.segs[0].Text, "First Mystery")

	require.NoError(t, h.coord.SetLanguage(ctx, domain.Spanish))
	assert.False(t, h.coord.Valid(old))
	second := h.speaker.next(t)
	assert.Contains(t, second.segs[0].Text, "Primer Misterio")

	snap := h.coord.Snapshot()
	assert.Equal(t, 5, snap.Index)
	assert.Equal(t, domain.Spanish, snap.Language)

	rec, err := h.tracker.Load(ctx, "joyful")
	require.NoError(t, err)
	assert.Equal(t, domain.Spanish, rec.Language)
	assert.Equal(t, 5, rec.CurrentStepIndex)
}

func TestCompletionClearsProgress(t *testing.T) {
	h := setup(t, true, WithContinuous(true))
	ctx := context.Background()

	require.True(t, h.coord.Jump(ctx, h.flow.TotalSteps()-1))
	_, err := h.tracker.Load(ctx, "joyful")
	require.NoError(t, err)

	h.coord.Play(ctx)
	h.speaker.next(t).done <- nil
	require.NoError(t, h.waitFinished(t))
	h.speaker.none(t)

	_, err = h.tracker.Load(ctx, "joyful")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBoundaryNavigationIsNoop(t *testing.T) {
	h := setup(t, true)
	ctx := context.Background()

	tok := h.coord.Play(ctx)
	h.speaker.next(t)

	assert.False(t, h.coord.Previous(ctx))
	assert.False(t, h.coord.Jump(ctx, 999))
	assert.True(t, h.coord.Valid(tok), "no-op navigation must not cancel playback")
}

func TestResetRewinds(t *testing.T) {
	h := setup(t, true)
	ctx := context.Background()

	h.coord.Jump(ctx, 30)
	h.coord.Reset(ctx)

	assert.Equal(t, 0, h.coord.Snapshot().Index)
	_, err := h.tracker.Load(ctx, "joyful")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFruitPreferenceReachesSegments(t *testing.T) {
	h := setup(t, true)
	ctx := context.Background()
	require.NoError(t, h.tracker.SetPreference(ctx, "fruit", true))

	// First Hail Mary of the first decade.
	h.coord.Jump(ctx, 7)
	h.coord.Play(ctx)
	call := h.speaker.next(t)
	require.Len(t, call.segs, 3)
	assert.Equal(t, "Meditating on Humility", call.segs[0].Text)
}

// prefetchSpeaker is a fakeSpeaker that also records Prefetch batches.
type prefetchSpeaker struct {
	*fakeSpeaker
	pmu     sync.Mutex
	batches [][]domain.Segment
}

func (p *prefetchSpeaker) Prefetch(segs []domain.Segment) {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	p.batches = append(p.batches, segs)
}

func (p *prefetchSpeaker) batch(t *testing.T, i int) []domain.Segment {
	t.Helper()
	p.pmu.Lock()
	defer p.pmu.Unlock()
	require.Greater(t, len(p.batches), i, "prefetch batch %d missing", i)
	return p.batches[i]
}

func texts(segs []domain.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

func TestPrefetchMatchesNextPlayback(t *testing.T) {
	tests := []struct {
		name  string
		start int
	}{
		{"into first announcement", 4},
		{"into first hail mary", 6},
		{"into second announcement", 19},
		{"into closing", 79},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &prefetchSpeaker{fakeSpeaker: newFakeSpeaker(true)}
			h := setupSpeaker(t, sp.fakeSpeaker, sp, WithContinuous(true))
			ctx := context.Background()
			require.NoError(t, h.tracker.SetPreference(ctx, "fruit", true))

			require.True(t, h.coord.Jump(ctx, tt.start))
			h.coord.Play(ctx)
			call := h.speaker.next(t)
			prefetched := sp.batch(t, 0)

			call.done <- nil
			require.NoError(t, h.waitFinished(t))
			played := h.speaker.next(t)

			require.NotEmpty(t, played.segs)
			assert.Equal(t, texts(played.segs), texts(prefetched))
		})
	}
}
