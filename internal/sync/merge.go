package sync

// Merge combines an existing stored record with a freshly fetched one.
// Incoming wins for every field it defines; fields it omits keep their
// stored value. firstFetchedAt is set once and never overwritten.
// Last-write-wins within one tenant's own sync cadence; no conflict records.
func Merge(existing, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		if v == nil {
			continue
		}
		merged[k] = v
	}

	if v, ok := existing[FieldFirstFetchedAt]; ok && v != nil {
		merged[FieldFirstFetchedAt] = v
	}
	if v, ok := existing[FieldIntegrationID]; ok && v != nil {
		merged[FieldIntegrationID] = v
	}

	return merged
}
