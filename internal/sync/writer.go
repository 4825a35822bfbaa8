package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-sync-service/internal/logger"
	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/store"
)

// WriteStats is the accounting for one flush.
type WriteStats struct {
	NewCount     int
	UpdatedCount int
	ErrorCount   int
}

// Writer commits resolved records in fixed-size atomic batches. A failed
// chunk is counted and logged; the remaining chunks still commit.
type Writer struct {
	store store.Store
}

func NewWriter(st store.Store) *Writer {
	return &Writer{store: st}
}

// WriteAll upserts records into the kind's collection. matches must be
// parallel to records: a found match becomes a merged update of that
// document, anything else becomes a fresh insert. Bookkeeping stamps
// reflect commit time, not fetch time.
func (w *Writer) WriteAll(ctx context.Context, tenantID string, kind marketplace.Kind, records []map[string]any, matches []Match) (WriteStats, error) {
	if len(records) != len(matches) {
		return WriteStats{}, fmt.Errorf("records/matches length mismatch: %d vs %d", len(records), len(matches))
	}

	var stats WriteStats
	for start := 0; start < len(records); start += store.BatchLimit {
		end := start + store.BatchLimit
		if end > len(records) {
			end = len(records)
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		writes := make([]store.Write, 0, end-start)
		var chunkNew, chunkUpdated int

		for i := start; i < end; i++ {
			record, match := records[i], matches[i]
			if match.Found {
				data := Merge(match.Existing, record)
				data[FieldLastUpdated] = now
				data[FieldFetchedAt] = now
				// Merge-write: fields another writer added since our read
				// survive the commit.
				writes = append(writes, store.Write{ID: match.DocumentID, Data: data, Merge: true})
				chunkUpdated++
				continue
			}

			data := make(map[string]any, len(record)+4)
			for k, v := range record {
				data[k] = v
			}
			data[FieldIntegrationID] = tenantID
			data[FieldFirstFetchedAt] = now
			data[FieldLastUpdated] = now
			data[FieldFetchedAt] = now
			writes = append(writes, store.Write{ID: uuid.NewString(), Data: data})
			chunkNew++
		}

		if err := w.store.BatchWrite(ctx, string(kind), writes); err != nil {
			serr := NewStorageError(OpWrite, err)
			logger.Log.Error("batch commit failed",
				zap.String("tenant", tenantID),
				zap.String("kind", string(kind)),
				zap.Int("chunkSize", len(writes)),
				zap.Error(serr),
			)
			stats.ErrorCount += len(writes)
			continue
		}

		stats.NewCount += chunkNew
		stats.UpdatedCount += chunkUpdated
	}

	return stats, nil
}
