package mqtt

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sweeney/zigbee-light/internal/light"
)

// Reporter publishes light state changes from its own goroutine. Notify never
// blocks; states that arrive faster than they can be published collapse into
// the latest one.
type Reporter struct {
	pub    Publisher
	logger zerolog.Logger
	wake   chan struct{}

	mu     sync.Mutex
	latest light.State
	dirty  bool
}

// NewReporter creates a Reporter for pub.
func NewReporter(pub Publisher, logger zerolog.Logger) *Reporter {
	return &Reporter{
		pub:    pub,
		logger: logger.With().Str("component", "reporter").Logger(),
		wake:   make(chan struct{}, 1),
	}
}

// Notify records st for publishing. It is suitable as a light.Store observer.
func (r *Reporter) Notify(st light.State) {
	r.mu.Lock()
	r.latest = st
	r.dirty = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run publishes pending states until ctx is done.
func (r *Reporter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
			r.flush()
		}
	}
}

func (r *Reporter) flush() {
	r.mu.Lock()
	st, dirty := r.latest, r.dirty
	r.dirty = false
	r.mu.Unlock()
	if !dirty {
		return
	}
	if err := r.pub.PublishState(st); err != nil {
		r.logger.Error().Err(err).Msg("publish state")
	}
}
