package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local runs. Semantics
// match MySQLStore: equality filters compare the string form of a field, and
// each batch call is atomic.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	runs        []*RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Data: copyMap(data)}, nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var docs []Document
	for _, id := range ids {
		data := s.collections[collection][id]
		if matchesAll(data, filters) {
			docs = append(docs, Document{ID: id, Data: copyMap(data)})
			if limit > 0 && len(docs) >= limit {
				break
			}
		}
	}
	return docs, nil
}

func (s *MemoryStore) BatchWrite(ctx context.Context, collection string, writes []Write) error {
	if len(writes) > BatchLimit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(writes), BatchLimit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string]map[string]any)
		s.collections[collection] = coll
	}

	for _, w := range writes {
		existing, ok := coll[w.ID]
		if w.Merge && ok {
			for k, v := range w.Data {
				existing[k] = v
			}
			continue
		}
		coll[w.ID] = copyMap(w.Data)
	}
	return nil
}

func (s *MemoryStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) > BatchLimit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(ids), BatchLimit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.collections[collection], id)
	}
	return nil
}

func (s *MemoryStore) CreateRun(ctx context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs = append(s.runs, &cp)
	return nil
}

func (s *MemoryStore) UpdateRun(ctx context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.runs {
		if r.ID == run.ID {
			cp := *run
			s.runs[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("run %s not found", run.ID)
}

func (s *MemoryStore) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	// Newest first.
	ordered := make([]*RunRecord, len(s.runs))
	copy(ordered, s.runs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartedAt.After(ordered[j].StartedAt)
	})

	if offset >= len(ordered) {
		return nil, nil
	}
	ordered = ordered[offset:]
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]*RunRecord, len(ordered))
	for i, r := range ordered {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Count reports how many documents a collection holds.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func matchesAll(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || FieldString(v) != f.Value {
			return false
		}
	}
	return true
}

func copyMap(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
