package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/rosario/internal/domain"
)

// inflight tracks the cancel func of the Speak call currently running.
// Stop cancels only that call; nothing sticks for the next one.
type inflight struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// begin registers a new call and returns its context and a release func.
func (f *inflight) begin(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.cancel = cancel
	f.mu.Unlock()

	return ctx, func() {
		f.mu.Lock()
		if f.seq == seq {
			f.cancel = nil
		}
		f.mu.Unlock()
		cancel()
	}
}

// stop cancels the registered call and reports whether there was one.
func (f *inflight) stop() bool {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

func (f *inflight) active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrPlaybackCancelled, err)
}
