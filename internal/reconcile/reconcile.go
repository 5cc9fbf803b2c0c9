// Package reconcile writes pipeline results back to the record store in
// bounded batches.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/airtable"
)

// BatchError reports one failed persistence batch: which record ids were in
// it and the underlying store error. Callers must not assume the whole input
// persisted when Persist returns an error; successful batches are still
// returned alongside it.
type BatchError struct {
	Batch     int
	RecordIDs []string
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("reconcile: batch %d (%d records) failed: %v", e.Batch, len(e.RecordIDs), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Persist splits updates into batches of the store's maximum size and issues
// them concurrently. Results are concatenated preserving batch order. Every
// failed batch contributes a *BatchError to the joined returned error;
// partial success returns both the persisted records and the error.
func Persist(ctx context.Context, store airtable.Client, updates []airtable.RecordUpdate) ([]airtable.Record, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	var batches [][]airtable.RecordUpdate
	for start := 0; start < len(updates); start += airtable.MaxBatchSize {
		end := min(start+airtable.MaxBatchSize, len(updates))
		batches = append(batches, updates[start:end])
	}

	zap.L().Info("persisting record updates",
		zap.Int("records", len(updates)),
		zap.Int("batches", len(batches)),
	)

	results := make([][]airtable.Record, len(batches))
	batchErrs := make([]error, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			recs, err := store.UpdateRecords(gctx, batch)
			if err != nil {
				ids := make([]string, len(batch))
				for j, u := range batch {
					ids[j] = u.ID
				}
				zap.L().Error("persist batch failed",
					zap.Int("batch", i),
					zap.Strings("record_ids", ids),
					zap.Error(err),
				)
				batchErrs[i] = &BatchError{Batch: i, RecordIDs: ids, Err: err}
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	var persisted []airtable.Record
	for _, recs := range results {
		persisted = append(persisted, recs...)
	}

	var failed []error
	for _, err := range batchErrs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return persisted, errors.Join(failed...)
	}

	return persisted, nil
}

// ResultUpdates maps pipeline results onto record-store updates. Results
// without a record id (leads that were never stored) are skipped.
func ResultUpdates(results []model.PipelineResult) []airtable.RecordUpdate {
	updates := make([]airtable.RecordUpdate, 0, len(results))
	for _, res := range results {
		if res.RecordID == "" {
			continue
		}
		updates = append(updates, airtable.RecordUpdate{
			ID:     res.RecordID,
			Fields: res.UpdateFields(),
		})
	}
	return updates
}
