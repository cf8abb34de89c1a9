// Package workflow runs named pipeline steps either inline or durably, with
// per-step retry and checkpointed results.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
)

// Executor decides how a named step runs and whether its result is kept.
type Executor interface {
	// Lookup returns the recorded payload of a step that already completed.
	Lookup(ctx context.Context, step string) ([]byte, bool, error)
	Execute(ctx context.Context, step string, fn func(ctx context.Context) error) error
	// Commit records a finished step.
	Commit(ctx context.Context, step string, payload []byte) error
	Persistent() bool
}

// StepError tags a failure with the step that produced it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Do runs fn as the named step. A step already recorded by ex is not run
// again; its stored result is decoded instead.
func Do[T any](ctx context.Context, ex Executor, step string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T

	payload, ok, err := ex.Lookup(ctx, step)
	if err != nil {
		return out, &StepError{Step: step, Err: err}
	}
	if ok {
		if err := json.Unmarshal(payload, &out); err == nil {
			return out, nil
		}
		// unreadable checkpoint: run the step again
		out = *new(T)
	}

	err = ex.Execute(ctx, step, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return out, &StepError{Step: step, Err: err}
	}

	var encoded []byte
	if ex.Persistent() {
		if encoded, err = json.Marshal(out); err != nil {
			return out, &StepError{Step: step, Err: fmt.Errorf("encode result: %w", err)}
		}
	}
	if err := ex.Commit(ctx, step, encoded); err != nil {
		return out, &StepError{Step: step, Err: err}
	}
	return out, nil
}

// Inline runs every step once, in process, and remembers nothing.
type Inline struct{}

var _ Executor = Inline{}

func (Inline) Lookup(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Inline) Execute(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (Inline) Commit(context.Context, string, []byte) error { return nil }

func (Inline) Persistent() bool { return false }
