package studio

import (
	"context"
	"fmt"
	"sync"

	"github.com/0x6d61/sqlistudio/internal/history"
	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
	"github.com/0x6d61/sqlistudio/internal/transport"
)

// Variant is one suggestion applied to the workspace request. Response
// and SendErr are only set when the batch sends.
type Variant struct {
	Index    int
	Result   payload.Result
	Response *transport.Response
	SendErr  error
}

// BatchOptions controls RunBatch.
type BatchOptions struct {
	// Workers is the number of concurrent senders (minimum 1).
	Workers int
	// Send sends every successfully modified request.
	Send bool
}

// job is one suggestion waiting for a worker.
type job struct {
	index      int
	suggestion payload.Suggestion
	point      payload.InjectionPoint
}

// RunBatch applies each suggestion to the current request independently and
// returns one Variant per suggestion, in input order. Variants never touch
// the editor. Every application attempt is recorded when history is
// configured. A suggestion whose point cannot be resolved yields a failed
// Result rather than an error.
func (w *Workspace) RunBatch(ctx context.Context, suggestions []payload.Suggestion, opts BatchOptions) ([]Variant, error) {
	if opts.Send && w.sender == nil {
		return nil, ErrNoSender
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	base := w.Request()

	out := make([]Variant, len(suggestions))
	for i := range out {
		out[i].Index = i
	}
	jobs := make(chan job, opts.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				out[j.index] = w.runVariant(ctx, base, j, opts.Send)
			}
		}()
	}

	for i, s := range suggestions {
		point, err := w.ResolvePoint(s)
		if err != nil {
			out[i] = Variant{Index: i, Result: payload.Result{
				ModifiedRequest: base.Clone(),
				Applied:         payload.Application{Suggestion: s, Error: err.Error()},
				Error:           err.Error(),
			}}
			continue
		}
		select {
		case jobs <- job{index: i, suggestion: s, point: point}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("studio: batch interrupted: %w", err)
	}
	return out, nil
}

// runVariant applies and optionally sends one job. A panic in a worker is
// reported on the variant so the rest of the batch completes.
func (w *Workspace) runVariant(ctx context.Context, base request.HTTPRequest, j job, send bool) (v Variant) {
	v.Index = j.index
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("batch worker recovered from panic", "index", j.index, "panic", fmt.Sprintf("%v", r))
			v.SendErr = fmt.Errorf("studio: variant %d: %v", j.index, r)
		}
	}()

	if ctx.Err() != nil {
		v.Result = payload.Result{ModifiedRequest: base.Clone(), Error: ctx.Err().Error()}
		return v
	}

	v.Result = w.engine.Apply(base, j.suggestion, j.point)
	if w.store != nil {
		if err := w.store.Record(ctx, history.NewEntry(base, v.Result)); err != nil {
			w.logger.Warn("failed to record batch application", "index", j.index, "error", err)
		}
	}
	if !v.Result.Success {
		return v
	}
	if send {
		v.Response, v.SendErr = w.sender.Do(ctx, v.Result.ModifiedRequest)
		if v.SendErr != nil {
			w.logger.Debug("batch send failed", "index", j.index, "error", v.SendErr)
		}
	}
	return v
}
