package gateway

import (
	"context"

	"github.com/mspops/predictgate/mapping"
	"github.com/mspops/predictgate/resilience"
)

// InvokeBatch requests predictions for many records of one model with
// bounded concurrency. Results and errors are indexed by the record's
// position. Each record goes through the full Invoke flow, so retry,
// breaker and fallback behavior match single calls; the batch layer
// only bounds concurrency. With FailFast set, a validation failure
// aborts records that have not started (their error is
// resilience.ErrBatchAborted).
func (g *Gateway) InvokeBatch(ctx context.Context, model mapping.ModelType, records []any, opts mapping.Options, cfg resilience.BatchConfig) ([]Result, []error) {
	ops := make([]func(context.Context) (Result, error), len(records))
	for i, record := range records {
		ops[i] = func(ctx context.Context) (Result, error) {
			return g.Invoke(ctx, model, record, opts)
		}
	}
	// Invoke retries internally; a nil retry keeps the batch layer from
	// compounding attempts.
	return resilience.RunBatch(ctx, nil, ops, cfg)
}
