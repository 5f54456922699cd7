package syncqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Applier pushes one queued item against the backing store. The application
// must be idempotent on the item's record id: redelivery after a lost
// acknowledgment may re-apply an already stored write.
type Applier interface {
	Apply(ctx context.Context, it *Item) error
}

// Replayer drains the queue FIFO whenever connectivity returns or a manual
// force-sync is requested. Both paths funnel through the same single-flight
// guard: a trigger while a pass is running is a no-op.
type Replayer struct {
	store       Store
	applier     Applier
	baseBackoff time.Duration
	maxBackoff  time.Duration
	maxAttempts int
	log         *zap.Logger

	mu        sync.Mutex
	replaying bool
	trigger   chan struct{}
}

func NewReplayer(store Store, applier Applier, baseBackoff time.Duration, maxAttempts int, log *zap.Logger) *Replayer {
	if baseBackoff <= 0 {
		baseBackoff = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	return &Replayer{
		store:       store,
		applier:     applier,
		baseBackoff: baseBackoff,
		maxBackoff:  5 * time.Minute,
		maxAttempts: maxAttempts,
		log:         log.Named("replayer"),
		trigger:     make(chan struct{}, 1),
	}
}

// Notify requests a drain. Non-blocking; collapsing bursts into one pass is
// exactly what the single-flight semantics want.
func (r *Replayer) Notify() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run processes triggers until the context ends. A slow ticker retries
// backed-off items without an external signal.
func (r *Replayer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.baseBackoff * 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
		case <-ticker.C:
		}
		if n, err := r.ReplayNow(ctx); err != nil {
			r.log.Warn("replay pass ended with failure", zap.Int("applied", n), zap.Error(err))
		}
	}
}

// ReplayNow drains synchronously. Returns the number of items applied. A
// concurrent pass makes this a no-op returning 0.
func (r *Replayer) ReplayNow(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.replaying {
		r.mu.Unlock()
		return 0, nil
	}
	r.replaying = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.replaying = false
		r.mu.Unlock()
	}()

	items, err := r.store.Pending(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	now := time.Now().UTC()
	for _, it := range items {
		// FIFO is strict: a backed-off head blocks the pass rather than
		// letting later writes overtake it.
		if it.NextAttemptAt.After(now) {
			break
		}
		if err := r.applier.Apply(ctx, it); err != nil {
			r.recordFailure(ctx, it, err)
			return applied, err
		}
		if err := r.store.Delete(ctx, it.Seq); err != nil {
			return applied, err
		}
		applied++
	}
	if applied > 0 {
		r.log.Info("replay pass complete", zap.Int("applied", applied))
	}
	return applied, nil
}

// Status reports the pending-indicator counts.
func (r *Replayer) Status(ctx context.Context) (*Status, error) {
	pending, review, err := r.store.Counts(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	replaying := r.replaying
	r.mu.Unlock()
	return &Status{Pending: pending, NeedsReview: review, Replaying: replaying}, nil
}

// NeedsReview lists items that exhausted their retries and await manual
// intervention. They are never dropped.
func (r *Replayer) NeedsReview(ctx context.Context) ([]*Item, error) {
	return r.store.ListNeedsReview(ctx)
}

func (r *Replayer) recordFailure(ctx context.Context, it *Item, cause error) {
	it.AttemptCount++
	it.LastError = cause.Error()
	it.NextAttemptAt = time.Now().UTC().Add(r.backoff(it.AttemptCount))
	if it.AttemptCount >= r.maxAttempts {
		it.NeedsReview = true
		r.log.Error("sync item flagged for manual review",
			zap.Int64("seq", it.Seq),
			zap.String("kind", it.Kind),
			zap.String("record_id", it.RecordID.String()),
			zap.Int("attempts", it.AttemptCount),
			zap.Error(cause))
	} else {
		r.log.Warn("sync item failed, will retry",
			zap.Int64("seq", it.Seq),
			zap.String("kind", it.Kind),
			zap.Int("attempts", it.AttemptCount),
			zap.Time("next_attempt", it.NextAttemptAt),
			zap.Error(cause))
	}
	if err := r.store.RecordFailure(ctx, it); err != nil {
		r.log.Error("record sync failure", zap.Error(err))
	}
}

func (r *Replayer) backoff(attempts int) time.Duration {
	d := r.baseBackoff
	for i := 1; i < attempts && d < r.maxBackoff; i++ {
		d *= 2
	}
	if d > r.maxBackoff {
		d = r.maxBackoff
	}
	return d
}
