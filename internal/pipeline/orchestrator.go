package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/corpusgen/internal/store"
)

// Result is the outcome of one pipeline within a run.
type Result struct {
	Name       string
	FinalCount int
	Target     int
}

// Summary reports an orchestrator run: per-pipeline final counts in
// declaration order, the merged corpus size, and the seed corpus size
// when a seed log is configured.
type Summary struct {
	RunID       string
	Pipelines   []Result
	MergedTotal int
	SeedCount   int
}

// Orchestrator runs every configured pipeline strictly one at a time,
// in declaration order, then rebuilds the merged corpus from scratch.
type Orchestrator struct {
	Runner       Runner
	Store        store.Store
	Specs        []Spec
	MergedOutput string
	SeedInput    string
	Logger       *zap.Logger
}

func (o Orchestrator) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := o.logger().With(zap.String("run_id", summary.RunID))
	logger.Info("orchestrator starting", zap.Int("pipelines", len(o.Specs)))

	for _, spec := range o.Specs {
		finalCount, runErr := o.Runner.Run(ctx, spec)
		if runErr != nil {
			return summary, runErr
		}
		summary.Pipelines = append(summary.Pipelines, Result{
			Name:       spec.Name,
			FinalCount: finalCount,
			Target:     spec.Target,
		})
	}

	sources := make([]string, 0, len(o.Specs))
	for _, spec := range o.Specs {
		sources = append(sources, spec.Output)
	}
	mergedTotal, mergeErr := o.Store.Merge(sources, o.MergedOutput)
	if mergeErr != nil {
		return summary, mergeErr
	}
	summary.MergedTotal = mergedTotal

	if o.SeedInput != "" {
		seedCount, seedErr := o.Store.Count(o.SeedInput)
		if seedErr != nil {
			return summary, seedErr
		}
		summary.SeedCount = seedCount
	}

	logger.Info("orchestrator done",
		zap.Int("merged_total", summary.MergedTotal), zap.Int("seed", summary.SeedCount))
	return summary, nil
}

func (o Orchestrator) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
