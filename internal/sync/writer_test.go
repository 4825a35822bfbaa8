package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/store"
)

// flakyStore fails selected BatchWrite calls to exercise chunk isolation.
type flakyStore struct {
	*store.MemoryStore
	failOnCall map[int]bool
	writeCalls int
}

func (f *flakyStore) BatchWrite(ctx context.Context, collection string, writes []store.Write) error {
	f.writeCalls++
	if f.failOnCall[f.writeCalls] {
		return errors.New("commit failed")
	}
	return f.MemoryStore.BatchWrite(ctx, collection, writes)
}

func TestWriteAllCountsNewAndUpdated(t *testing.T) {
	st := store.NewMemoryStore()
	seedDocs(t, st, "products", map[string]map[string]any{
		"doc-a": {FieldIntegrationID: "t1", "sku": "SKU-A", "selling_price": 100.0},
	})

	w := NewWriter(st)
	records := []map[string]any{
		{"sku": "SKU-A", "selling_price": 150.0},
		{"sku": "SKU-B", "selling_price": 80.0},
	}
	matches := []Match{
		{Found: true, DocumentID: "doc-a", Existing: map[string]any{FieldIntegrationID: "t1", "sku": "SKU-A", "selling_price": 100.0}},
		{},
	}

	stats, err := w.WriteAll(context.Background(), "t1", marketplace.KindProducts, records, matches)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NewCount)
	assert.Equal(t, 1, stats.UpdatedCount)
	assert.Equal(t, 0, stats.ErrorCount)
	assert.Equal(t, 2, st.Count("products"))

	updated, err := st.Get(context.Background(), "products", "doc-a")
	require.NoError(t, err)
	assert.Equal(t, 150.0, updated.Data["selling_price"])
}

func TestWriteAllStampsBookkeepingOnInsert(t *testing.T) {
	st := store.NewMemoryStore()
	w := NewWriter(st)

	before := time.Now().UTC()
	_, err := w.WriteAll(context.Background(), "t1", marketplace.KindProducts,
		[]map[string]any{{"sku": "SKU-A"}}, []Match{{}})
	require.NoError(t, err)

	docs, err := st.Query(context.Background(), "products", nil, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	data := docs[0].Data
	assert.Equal(t, "t1", data[FieldIntegrationID])
	for _, field := range []string{FieldFirstFetchedAt, FieldLastUpdated, FieldFetchedAt} {
		raw, ok := data[field].(string)
		require.True(t, ok, field)
		ts, err := time.Parse(time.RFC3339Nano, raw)
		require.NoError(t, err)
		assert.False(t, ts.Before(before.Truncate(time.Second)), field)
	}
}

func TestWriteAllChunksAtBatchLimit(t *testing.T) {
	fs := &flakyStore{MemoryStore: store.NewMemoryStore(), failOnCall: map[int]bool{}}
	w := NewWriter(fs)

	n := store.BatchLimit + 1
	records := make([]map[string]any, n)
	matches := make([]Match, n)
	for i := range records {
		records[i] = map[string]any{"sku": fmt.Sprintf("SKU-%d", i)}
	}

	stats, err := w.WriteAll(context.Background(), "t1", marketplace.KindProducts, records, matches)
	require.NoError(t, err)

	assert.Equal(t, 2, fs.writeCalls)
	assert.Equal(t, n, stats.NewCount)
	assert.Equal(t, n, fs.Count("products"))
}

func TestWriteAllChunkFailureDoesNotAbortRemaining(t *testing.T) {
	fs := &flakyStore{MemoryStore: store.NewMemoryStore(), failOnCall: map[int]bool{1: true}}
	w := NewWriter(fs)

	n := store.BatchLimit + 10
	records := make([]map[string]any, n)
	matches := make([]Match, n)
	for i := range records {
		records[i] = map[string]any{"sku": fmt.Sprintf("SKU-%d", i)}
	}

	stats, err := w.WriteAll(context.Background(), "t1", marketplace.KindProducts, records, matches)
	require.NoError(t, err)

	// First chunk lost, second chunk committed.
	assert.Equal(t, store.BatchLimit, stats.ErrorCount)
	assert.Equal(t, 10, stats.NewCount)
	assert.Equal(t, 10, fs.Count("products"))
}

// recordingStore captures the writes each BatchWrite call receives.
type recordingStore struct {
	*store.MemoryStore
	captured []store.Write
}

func (r *recordingStore) BatchWrite(ctx context.Context, collection string, writes []store.Write) error {
	r.captured = append(r.captured, writes...)
	return r.MemoryStore.BatchWrite(ctx, collection, writes)
}

func TestWriteAllUpdatesUseMergeWrites(t *testing.T) {
	rs := &recordingStore{MemoryStore: store.NewMemoryStore()}
	seedDocs(t, rs.MemoryStore, "products", map[string]map[string]any{
		"doc-a": {FieldIntegrationID: "t1", "sku": "SKU-A"},
	})

	w := NewWriter(rs)
	records := []map[string]any{
		{"sku": "SKU-A", "selling_price": 150.0},
		{"sku": "SKU-B"},
	}
	matches := []Match{
		{Found: true, DocumentID: "doc-a", Existing: map[string]any{FieldIntegrationID: "t1", "sku": "SKU-A"}},
		{},
	}

	_, err := w.WriteAll(context.Background(), "t1", marketplace.KindProducts, records, matches)
	require.NoError(t, err)

	require.Len(t, rs.captured, 2)
	assert.True(t, rs.captured[0].Merge)
	assert.Equal(t, "doc-a", rs.captured[0].ID)
	assert.False(t, rs.captured[1].Merge)
}

func TestWriteAllRejectsMismatchedInputs(t *testing.T) {
	w := NewWriter(store.NewMemoryStore())
	_, err := w.WriteAll(context.Background(), "t1", marketplace.KindProducts,
		[]map[string]any{{"sku": "A"}}, nil)
	assert.Error(t, err)
}
