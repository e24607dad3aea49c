package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/telhawk-systems/fwlens/common/logging"
	"github.com/telhawk-systems/fwlens/common/opensearch"
)

// Indexer is the bulk write side of the OpenSearch client.
type Indexer interface {
	BulkIndex(ctx context.Context, defaultIndex string, docs []opensearch.Document) (opensearch.BulkResult, error)
}

// Runner loads generated events in batches.
type Runner struct {
	indexer   Indexer
	batchSize int
	logger    *logging.Logger
}

func NewRunner(indexer Indexer, batchSize int, logger *logging.Logger) *Runner {
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{indexer: indexer, batchSize: batchSize, logger: logger}
}

// Run indexes docs and returns the combined result. It stops at the first
// batch that fails as a whole; per-document failures are only counted.
func (r *Runner) Run(ctx context.Context, docs []opensearch.Document) (opensearch.BulkResult, error) {
	var total opensearch.BulkResult

	for start := 0; start < len(docs); start += r.batchSize {
		end := min(start+r.batchSize, len(docs))

		res, err := r.indexer.BulkIndex(ctx, "", docs[start:end])
		total.Indexed += res.Indexed
		total.Failed += res.Failed
		total.Errors = append(total.Errors, res.Errors...)
		if err != nil {
			return total, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}

		r.logger.Debug("Indexed batch",
			slog.Int("from", start),
			slog.Int("to", end),
			slog.Int("failed", res.Failed))
	}

	return total, nil
}
