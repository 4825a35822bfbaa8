package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"marketplace-sync-service/internal/logger"
	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/store"
)

// Cleaner removes exact-key duplicates left behind by concurrent runs or
// historic data. Full-scan sweep, run on demand.
type Cleaner struct {
	store store.Store
}

func NewCleaner(st store.Store) *Cleaner {
	return &Cleaner{store: st}
}

// Dedupe groups a tenant's records by resolved identity key and, for every
// group with more than one member, keeps the most recently updated document
// and deletes the rest in batched chunks.
func (c *Cleaner) Dedupe(ctx context.Context, tenantID string, kind marketplace.Kind) CleanupResult {
	docs, err := c.store.Query(ctx, string(kind), []store.Filter{
		{Field: FieldIntegrationID, Value: tenantID},
	}, 0)
	if err != nil {
		serr := NewStorageError(OpCleanup, err)
		logger.Log.Error("cleanup scan failed",
			zap.String("tenant", tenantID),
			zap.String("kind", string(kind)),
			zap.Error(serr),
		)
		return CleanupResult{Message: serr.Error()}
	}

	groups := make(map[string][]store.Document)
	for _, doc := range docs {
		identity := resolvedIdentity(kind, doc.Data)
		if identity == "" {
			continue
		}
		groups[identity] = append(groups[identity], doc)
	}

	var toDelete []string
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return lastUpdatedOf(group[i]).After(lastUpdatedOf(group[j]))
		})
		for _, doc := range group[1:] {
			toDelete = append(toDelete, doc.ID)
		}
	}

	removed := 0
	for start := 0; start < len(toDelete); start += store.BatchLimit {
		end := start + store.BatchLimit
		if end > len(toDelete) {
			end = len(toDelete)
		}
		chunk := toDelete[start:end]
		if err := c.store.BatchDelete(ctx, string(kind), chunk); err != nil {
			serr := NewStorageError(OpCleanup, err)
			logger.Log.Error("cleanup delete failed",
				zap.Int("chunkSize", len(chunk)),
				zap.Error(serr),
			)
			continue
		}
		removed += len(chunk)
	}

	logger.Log.Info("cleanup sweep finished",
		zap.String("tenant", tenantID),
		zap.String("kind", string(kind)),
		zap.Int("scanned", len(docs)),
		zap.Int("removed", removed),
	)

	return CleanupResult{
		Success:           true,
		Message:           fmt.Sprintf("removed %d duplicates from %d records", removed, len(docs)),
		DuplicatesRemoved: removed,
	}
}

func lastUpdatedOf(doc store.Document) time.Time {
	s, _ := doc.Data[FieldLastUpdated].(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
