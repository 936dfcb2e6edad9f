package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/attrhub/attrhub-go/pkg/executor"
	"github.com/attrhub/attrhub-go/pkg/logfields"
)

// GetValues reads every readable attribute under one lock acquisition.
// Attributes that fail are left out of the result.
func (r *Repository) GetValues(ctx context.Context) (map[string]any, error) {
	start := time.Now()
	ctx, release, err := r.lock.rlock(ctx)
	if err != nil {
		return nil, r.fail("", OpLock, err)
	}
	defer release()

	out := make(map[string]any, len(r.attrs))
	for _, id := range r.sortedIDs() {
		if !r.attrs[id].attr.Access().CanRead() {
			continue
		}
		v, err := r.GetValue(ctx, id)
		if err != nil {
			continue
		}
		out[id] = v
	}
	r.recorder.ObserveBulkDuration(r.resource, "get_values", time.Since(start))
	return out, nil
}

// SetValues writes values under one lock acquisition and returns the
// converted values that were written. Failing entries are left out.
func (r *Repository) SetValues(ctx context.Context, values map[string]any) (map[string]any, error) {
	start := time.Now()
	ctx, release, err := r.lock.rlock(ctx)
	if err != nil {
		return nil, r.fail("", OpLock, err)
	}
	defer release()

	out := make(map[string]any, len(values))
	for id, v := range values {
		cv, err := r.setValue(ctx, id, v)
		if err != nil {
			continue
		}
		out[id] = cv
	}
	r.recorder.ObserveBulkDuration(r.resource, "set_values", time.Since(start))
	return out, nil
}

type result struct {
	id    string
	value any
	err   error
}

// GetValuesParallel reads every readable attribute with one task per
// attribute on exec. With a positive timeout it returns whatever finished
// in time; tasks still running are abandoned and their results dropped.
func (r *Repository) GetValuesParallel(ctx context.Context, exec executor.Executor, timeout time.Duration) (map[string]any, error) {
	attrs, err := r.Attributes(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if a.Access().CanRead() {
			ids = append(ids, a.ID())
		}
	}
	return r.runParallel(ctx, exec, timeout, "get_values_parallel", ids, func(ctx context.Context, id string) (any, error) {
		return r.GetValue(ctx, id)
	})
}

// SetValuesParallel writes values with one task per entry on exec. It
// returns the converted values whose write completed before the timeout.
func (r *Repository) SetValuesParallel(ctx context.Context, exec executor.Executor, values map[string]any, timeout time.Duration) (map[string]any, error) {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	return r.runParallel(ctx, exec, timeout, "set_values_parallel", ids, func(ctx context.Context, id string) (any, error) {
		return r.setValue(ctx, id, values[id])
	})
}

func (r *Repository) runParallel(
	ctx context.Context,
	exec executor.Executor,
	timeout time.Duration,
	op string,
	ids []string,
	task func(ctx context.Context, id string) (any, error),
) (map[string]any, error) {
	start := time.Now()
	out := make(map[string]any, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	// Buffered so abandoned tasks never block on send.
	results := make(chan result, len(ids))

	// Submission runs on its own goroutine: exec.Go may block on a full
	// pool and the timeout covers that wait too.
	go func() {
		for _, id := range ids {
			exec.Go(func() {
				v, err := task(ctx, id)
				results <- result{id: id, value: v, err: err}
			})
		}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for pending := len(ids); pending > 0; pending-- {
		select {
		case res := <-results:
			if res.err == nil {
				out[res.id] = res.value
			}
		case <-expired:
			r.logger.LogAttrs(ctx, slog.LevelDebug, "bulk operation timed out",
				logfields.Operation(op),
				logfields.Count(pending),
				logfields.Duration(time.Since(start)),
			)
			r.recorder.ObserveBulkDuration(r.resource, op, time.Since(start))
			return out, nil
		case <-ctx.Done():
			r.recorder.ObserveBulkDuration(r.resource, op, time.Since(start))
			return out, nil
		}
	}
	r.recorder.ObserveBulkDuration(r.resource, op, time.Since(start))
	return out, nil
}
