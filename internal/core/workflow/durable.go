package workflow

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core/checkpoint"
)

// RetryPolicy bounds how often one step is attempted.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Permanent reports errors that no retry can fix.
	Permanent func(error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Durable retries each step under a RetryPolicy and checkpoints its result
// in a checkpoint.Store under runID.
type Durable struct {
	store    checkpoint.Store
	runID    string
	policy   RetryPolicy
	onCommit func(ctx context.Context, step string) error
}

var _ Executor = (*Durable)(nil)

// NewDurable builds a durable executor. onCommit, when set, runs after each
// step's checkpoint is saved.
func NewDurable(store checkpoint.Store, runID string, policy RetryPolicy, onCommit func(ctx context.Context, step string) error) *Durable {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Durable{store: store, runID: runID, policy: policy, onCommit: onCommit}
}

func (d *Durable) Lookup(ctx context.Context, step string) ([]byte, bool, error) {
	payload, ok, err := d.store.Load(ctx, d.runID, step)
	if ok {
		logger.Infow("step restored from checkpoint", "run_id", d.runID, "step", step)
	}
	return payload, ok, err
}

func (d *Durable) Execute(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx)
		if err != nil && d.policy.Permanent != nil && d.policy.Permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warnw("step failed, retrying",
			"run_id", d.runID, "step", step, "attempt", attempt,
			"max_attempts", d.policy.MaxAttempts, "wait", wait.String(), "error", err)
	}
	return backoff.RetryNotify(op, backoff.WithContext(d.newBackOff(), ctx), notify)
}

func (d *Durable) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if d.policy.InitialInterval > 0 {
		b.InitialInterval = d.policy.InitialInterval
	}
	if d.policy.MaxInterval > 0 {
		b.MaxInterval = d.policy.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(d.policy.MaxAttempts-1))
}

func (d *Durable) Commit(ctx context.Context, step string, payload []byte) error {
	if err := d.store.Save(ctx, d.runID, step, payload); err != nil {
		return err
	}
	if d.onCommit != nil {
		return d.onCommit(ctx, step)
	}
	return nil
}

func (d *Durable) Persistent() bool { return true }
