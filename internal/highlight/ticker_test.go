package highlight

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu    sync.Mutex
	words []int
}

func (r *recorder) hook(h Highlight) {
	r.mu.Lock()
	r.words = append(r.words, h.Word)
	r.mu.Unlock()
}

func (r *recorder) seen() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.words...)
}

func newTicker(clock *fakeClock, rec *recorder) *Ticker {
	return New(logger.New(logger.LevelOff, nil),
		WithClock(clock.Now),
		WithWordPace(100*time.Millisecond),
		WithHook(rec.hook),
	)
}

func TestTickerAdvancesWords(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rec := &recorder{}
	tk := newTicker(clock, rec)

	tk.Begin(domain.Segment{Text: "Holy Mary, Mother of God"})
	h, ok := tk.Current()
	if !ok || h.Word != 0 || len(h.Words) != 5 {
		t.Fatalf("after Begin: %+v, %v", h, ok)
	}

	clock.Advance(50 * time.Millisecond)
	tk.tick()
	clock.Advance(60 * time.Millisecond)
	tk.tick()
	clock.Advance(200 * time.Millisecond)
	tk.tick()

	want := []int{0, 1, 3}
	got := rec.seen()
	if len(got) != len(want) {
		t.Fatalf("hook words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hook words = %v, want %v", got, want)
		}
	}
}

func TestTickerClampsToLastWord(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tk := newTicker(clock, &recorder{})

	tk.Begin(domain.Segment{Text: "Amen."})
	clock.Advance(time.Hour)
	tk.tick()

	h, ok := tk.Current()
	if !ok || h.Word != 0 {
		t.Fatalf("got %+v, %v; want word 0 still marked", h, ok)
	}
}

func TestTickerRateScalesPace(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tk := newTicker(clock, &recorder{})

	tk.Begin(domain.Segment{Text: "one two three four", Rate: 2})
	clock.Advance(100 * time.Millisecond)
	tk.tick()

	if h, _ := tk.Current(); h.Word != 2 {
		t.Fatalf("word = %d, want 2 at double rate", h.Word)
	}
}

func TestTickerDisabled(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rec := &recorder{}
	tk := newTicker(clock, rec)

	tk.Begin(domain.Segment{Text: "Glory be"})
	tk.SetEnabled(false)
	if _, ok := tk.Current(); ok {
		t.Fatal("disabling must clear the highlight")
	}

	tk.Begin(domain.Segment{Text: "to the Father"})
	clock.Advance(time.Second)
	tk.tick()
	if _, ok := tk.Current(); ok {
		t.Fatal("Begin while disabled must not highlight")
	}
	if n := len(rec.seen()); n != 1 {
		t.Fatalf("hook called %d times, want 1", n)
	}
}

func TestTickerClear(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rec := &recorder{}
	tk := newTicker(clock, rec)

	tk.Begin(domain.Segment{Text: "pray for us sinners"})
	tk.Clear()
	clock.Advance(time.Second)
	tk.tick()

	if _, ok := tk.Current(); ok {
		t.Fatal("highlight survived Clear")
	}
	if n := len(rec.seen()); n != 1 {
		t.Fatalf("hook called %d times after Clear", n)
	}
}

func TestTickerLoop(t *testing.T) {
	rec := &recorder{}
	tk := New(logger.New(logger.LevelOff, nil),
		WithTickInterval(5*time.Millisecond),
		WithWordPace(10*time.Millisecond),
		WithHook(rec.hook),
	)
	ctx := context.Background()
	tk.Start(ctx)
	defer tk.Stop()

	tk.Begin(domain.Segment{Text: "In the name of the Father"})
	time.Sleep(200 * time.Millisecond)

	h, ok := tk.Current()
	if !ok || h.Word != 5 {
		t.Fatalf("after the segment's estimate: %+v, %v; want last word", h, ok)
	}
	if n := len(rec.seen()); n < 2 {
		t.Fatalf("hook called %d times", n)
	}
}
