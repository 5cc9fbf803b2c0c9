package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/airtable"
)

// fakeStore records update batches and optionally fails selected ones.
type fakeStore struct {
	airtable.Client

	mu      sync.Mutex
	batches [][]airtable.RecordUpdate
	failIDs map[string]bool
}

func (f *fakeStore) UpdateRecords(ctx context.Context, updates []airtable.RecordUpdate) ([]airtable.Record, error) {
	f.mu.Lock()
	f.batches = append(f.batches, updates)
	f.mu.Unlock()

	recs := make([]airtable.Record, len(updates))
	for i, u := range updates {
		if f.failIDs[u.ID] {
			return nil, errors.New("store rejected batch")
		}
		recs[i] = airtable.Record{ID: u.ID, Fields: u.Fields}
	}
	return recs, nil
}

func makeUpdates(n int) []airtable.RecordUpdate {
	updates := make([]airtable.RecordUpdate, n)
	for i := range updates {
		updates[i] = airtable.RecordUpdate{
			ID:     fmt.Sprintf("rec%03d", i),
			Fields: map[string]any{"status": "processed"},
		}
	}
	return updates
}

func TestPersist_SplitsIntoStoreSizedBatches(t *testing.T) {
	store := &fakeStore{}

	persisted, err := Persist(context.Background(), store, makeUpdates(23))
	require.NoError(t, err)
	assert.Len(t, persisted, 23)

	require.Len(t, store.batches, 3)
	sizes := map[int]int{}
	for _, b := range store.batches {
		sizes[len(b)]++
	}
	assert.Equal(t, map[int]int{10: 2, 3: 1}, sizes)
}

func TestPersist_Empty(t *testing.T) {
	store := &fakeStore{}

	persisted, err := Persist(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Nil(t, persisted)
	assert.Empty(t, store.batches)
}

func TestPersist_SurfacesFailedBatches(t *testing.T) {
	// rec012 lands in the second batch of 23 updates.
	store := &fakeStore{failIDs: map[string]bool{"rec012": true}}

	persisted, err := Persist(context.Background(), store, makeUpdates(23))
	require.Error(t, err)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Batch)
	assert.Len(t, be.RecordIDs, 10)
	assert.Contains(t, be.RecordIDs, "rec012")

	// The two healthy batches still persisted.
	assert.Len(t, persisted, 13)
}

func TestPersist_PreservesBatchOrder(t *testing.T) {
	store := &fakeStore{}

	persisted, err := Persist(context.Background(), store, makeUpdates(25))
	require.NoError(t, err)
	require.Len(t, persisted, 25)

	for i, rec := range persisted {
		assert.Equal(t, fmt.Sprintf("rec%03d", i), rec.ID)
	}
}

func TestResultUpdates_SkipsUnstoredLeads(t *testing.T) {
	results := []model.PipelineResult{
		{RecordID: "rec1", PitchMatchSummary: "a", PitchProductSummary: "b", PitchCtaSummary: "c"},
		{RecordID: "", PitchMatchSummary: "never stored"},
		{RecordID: "rec2", PitchMatchSummary: model.FailedText, PitchProductSummary: model.FailedText, PitchCtaSummary: model.FailedText},
	}

	updates := ResultUpdates(results)
	require.Len(t, updates, 2)
	assert.Equal(t, "rec1", updates[0].ID)
	assert.Equal(t, "rec2", updates[1].ID)

	// Failed results still write the sentinel so records are visibly broken.
	assert.Equal(t, model.FailedText, updates[1].Fields[model.StagePitchMatch.TextField()])
	assert.NotContains(t, updates[1].Fields, model.StagePitchMatch.PromptField())
}
