package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/corpusgen/internal/gate"
	"github.com/temirov/corpusgen/internal/parse"
	"github.com/temirov/corpusgen/internal/store"
)

// CompletionClient is the single request/response exchange against the
// remote completion API.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt string, userPrompt string, maxTokens int) (string, error)
}

// Runner drives one pipeline to completion: resume detection, batch
// sizing, the sequential batch loop, and per-batch persistence. Every
// per-batch failure is absorbed here; falling short of the target
// after all scheduled calls is a silent best-effort completion, not an
// error.
type Runner struct {
	Client    CompletionClient
	Gate      *gate.Gate
	Store     store.Store
	Logger    *zap.Logger
	RateDelay time.Duration
	MaxTokens int
}

// Run returns the final stored record count for the spec. It performs
// zero client calls when the store already holds at least the target
// number of lines. The only errors are context cancellation and store
// failures; all network and parse failures skip their batch.
func (r Runner) Run(ctx context.Context, spec Spec) (int, error) {
	logger := r.logger().With(zap.String("pipeline", spec.Name))

	existing, countErr := r.Store.Count(spec.Output)
	if countErr != nil {
		return 0, countErr
	}
	if existing >= spec.Target {
		logger.Info("target already reached, skipping",
			zap.Int("existing", existing), zap.Int("target", spec.Target))
		return existing, nil
	}

	remaining := spec.Target - existing
	numCalls := (remaining + spec.BatchSize - 1) / spec.BatchSize
	logger.Info("starting generation",
		zap.Int("existing", existing), zap.Int("remaining", remaining), zap.Int("calls", numCalls))

	generated := 0
	for callIndex := 0; callIndex < numCalls && generated < remaining; callIndex++ {
		count := min(spec.BatchSize, remaining-generated)
		text, callErr := r.completeGated(ctx, spec.System, spec.RenderPrompt(count))

		// The rate delay applies whether or not the call succeeded.
		if delayErr := sleepContext(ctx, r.RateDelay); delayErr != nil {
			return existing + generated, delayErr
		}
		if callErr != nil {
			if ctx.Err() != nil {
				return existing + generated, ctx.Err()
			}
			logger.Warn("call failed, skipping batch",
				zap.Int("call", callIndex+1), zap.Int("calls", numCalls), zap.Error(callErr))
			continue
		}

		candidates := parse.Records(text)
		if len(candidates) == 0 {
			logger.Warn("response yielded no candidates, skipping batch",
				zap.Int("call", callIndex+1), zap.Int("calls", numCalls))
			continue
		}

		records := make([]store.Record, 0, len(candidates))
		for _, candidate := range candidates {
			records = append(records, store.Record{
				Input:    candidate.Input,
				Output:   candidate.Output,
				Pipeline: spec.Name,
			})
		}
		if appendErr := r.Store.Append(spec.Output, records); appendErr != nil {
			return existing + generated, appendErr
		}
		generated += len(records)
		logger.Info("batch persisted",
			zap.Int("call", callIndex+1), zap.Int("calls", numCalls),
			zap.Int("added", len(records)), zap.Int("total", existing+generated))
	}

	finalCount := existing + generated
	logger.Info("pipeline done", zap.Int("final", finalCount), zap.Int("target", spec.Target))
	return finalCount, nil
}

// completeGated holds one gate unit for the duration of the network
// call, never across the rate delay.
func (r Runner) completeGated(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	if acquireErr := r.Gate.Acquire(ctx); acquireErr != nil {
		return "", acquireErr
	}
	defer r.Gate.Release()
	return r.Client.Complete(ctx, systemPrompt, userPrompt, r.MaxTokens)
}

func (r Runner) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func sleepContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
