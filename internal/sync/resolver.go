package sync

import (
	"context"

	"golang.org/x/sync/errgroup"

	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/store"
)

// Match is the outcome of duplicate resolution for one candidate record.
type Match struct {
	Found      bool
	DocumentID string
	Existing   map[string]any
}

// Resolver decides whether a freshly fetched record already exists in the
// store for a tenant.
type Resolver struct {
	store store.Store
}

func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// FindExisting runs one lookup per populated identity key concurrently and
// returns the first hit in priority order, so when two keys match different
// documents the higher-priority key wins.
//
// Two concurrent runs for the same tenant can both see "not found" here and
// both insert; the store exposes no unique-constraint primitive, so that race
// is accepted and compensated by the cleanup sweep. Manager serializes runs
// per (tenant, kind) within one process.
func (r *Resolver) FindExisting(ctx context.Context, tenantID string, kind marketplace.Kind, candidate map[string]any) (Match, error) {
	keys := identityKeys(kind)
	results := make([]*store.Document, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		value := fieldString(candidate, key)
		if value == "" {
			continue
		}
		i, key, value := i, key, value
		g.Go(func() error {
			docs, err := r.store.Query(gctx, string(kind), []store.Filter{
				{Field: FieldIntegrationID, Value: tenantID},
				{Field: key, Value: value},
			}, 1)
			if err != nil {
				return NewStorageError(OpResolve, err)
			}
			if len(docs) > 0 {
				results[i] = &docs[0]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Match{}, err
	}

	for _, doc := range results {
		if doc != nil {
			return Match{Found: true, DocumentID: doc.ID, Existing: doc.Data}, nil
		}
	}
	return Match{}, nil
}
