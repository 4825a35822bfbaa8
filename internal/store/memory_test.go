package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetMissing(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.Get(context.Background(), "products", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	st := NewMemoryStore()
	require.NoError(t, st.BatchWrite(context.Background(), "products", []Write{
		{ID: "a", Data: map[string]any{"integrationId": "t1", "sku": "S1"}},
		{ID: "b", Data: map[string]any{"integrationId": "t1", "sku": "S2"}},
		{ID: "c", Data: map[string]any{"integrationId": "t2", "sku": "S1"}},
	}))

	docs, err := st.Query(context.Background(), "products", []Filter{
		{Field: "integrationId", Value: "t1"},
	}, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = st.Query(context.Background(), "products", []Filter{
		{Field: "integrationId", Value: "t1"},
		{Field: "sku", Value: "S2"},
	}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)
}

func TestMemoryStoreQueryNumericFieldAsString(t *testing.T) {
	st := NewMemoryStore()
	require.NoError(t, st.BatchWrite(context.Background(), "sales", []Write{
		{ID: "s", Data: map[string]any{"order_id": 123456789.0}},
	}))

	docs, err := st.Query(context.Background(), "sales", []Filter{
		{Field: "order_id", Value: "123456789"},
	}, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestFieldString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "SKU-1", "SKU-1"},
		{"small float id", 123456.0, "123456"},
		{"large float id stays plain", 123456789.0, "123456789"},
		{"fractional", 249.5, "249.5"},
		{"int", 42, "42"},
		{"int64", int64(9007199254740993), "9007199254740993"},
		{"bool", true, "true"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldString(tt.in))
		})
	}
}

func TestMemoryStoreMergeWrite(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.BatchWrite(ctx, "products", []Write{
		{ID: "a", Data: map[string]any{"sku": "S1", "price": 10.0}},
	}))
	require.NoError(t, st.BatchWrite(ctx, "products", []Write{
		{ID: "a", Data: map[string]any{"price": 20.0}, Merge: true},
	}))

	doc, err := st.Get(ctx, "products", "a")
	require.NoError(t, err)
	assert.Equal(t, "S1", doc.Data["sku"])
	assert.Equal(t, 20.0, doc.Data["price"])
}

func TestMemoryStoreReplaceWrite(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.BatchWrite(ctx, "products", []Write{
		{ID: "a", Data: map[string]any{"sku": "S1", "price": 10.0}},
	}))
	require.NoError(t, st.BatchWrite(ctx, "products", []Write{
		{ID: "a", Data: map[string]any{"price": 20.0}},
	}))

	doc, err := st.Get(ctx, "products", "a")
	require.NoError(t, err)
	_, hasSKU := doc.Data["sku"]
	assert.False(t, hasSKU)
}

func TestMemoryStoreBatchLimit(t *testing.T) {
	st := NewMemoryStore()
	writes := make([]Write, BatchLimit+1)
	for i := range writes {
		writes[i] = Write{ID: fmt.Sprintf("d%d", i), Data: map[string]any{}}
	}
	assert.Error(t, st.BatchWrite(context.Background(), "products", writes))

	ids := make([]string, BatchLimit+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("d%d", i)
	}
	assert.Error(t, st.BatchDelete(context.Background(), "products", ids))
}

func TestMemoryStoreBatchDelete(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.BatchWrite(ctx, "products", []Write{
		{ID: "a", Data: map[string]any{}},
		{ID: "b", Data: map[string]any{}},
	}))
	require.NoError(t, st.BatchDelete(ctx, "products", []string{"a"}))
	assert.Equal(t, 1, st.Count("products"))
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.BatchWrite(ctx, "products", []Write{
		{ID: "a", Data: map[string]any{"sku": "S1"}},
	}))

	doc, err := st.Get(ctx, "products", "a")
	require.NoError(t, err)
	doc.Data["sku"] = "mutated"

	again, err := st.Get(ctx, "products", "a")
	require.NoError(t, err)
	assert.Equal(t, "S1", again.Data["sku"])
}

func TestMemoryStoreRunRecords(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	older := &RunRecord{ID: "r1", TenantID: "t1", Kind: "products", StartedAt: time.Now().Add(-time.Hour), Status: "completed"}
	newer := &RunRecord{ID: "r2", TenantID: "t1", Kind: "sales", StartedAt: time.Now(), Status: "running"}
	require.NoError(t, st.CreateRun(ctx, older))
	require.NoError(t, st.CreateRun(ctx, newer))

	newer.Status = "completed"
	require.NoError(t, st.UpdateRun(ctx, newer))

	runs, err := st.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, "completed", runs[0].Status)

	runs, err = st.ListRuns(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
}
