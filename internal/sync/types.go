package sync

import (
	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/store"
)

// Bookkeeping fields owned by the sync engine. The UI never writes these.
const (
	FieldIntegrationID  = "integrationId"
	FieldFirstFetchedAt = "firstFetchedAt"
	FieldLastUpdated    = "lastUpdated"
	FieldFetchedAt      = "fetchedAt"
)

// Result summarizes one sync run. Success stays true on degraded runs;
// callers must inspect TotalErrors to detect partial failure.
type Result struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	TotalItemsFetched int    `json:"totalItemsFetched"`
	TotalErrors       int    `json:"totalErrors"`
	NewRecords        int    `json:"newRecordsAdded"`
	UpdatedRecords    int    `json:"duplicatesUpdated"`
}

// CleanupResult summarizes one dedup sweep.
type CleanupResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	DuplicatesRemoved int    `json:"duplicatesRemoved"`
}

// Progress is handed to RunParams.OnProgress after every page.
type Progress struct {
	Page         int
	TotalPages   int
	ItemsFetched int
	ErrorItems   int
}

// RunParams identifies one (tenant, kind) sync run.
type RunParams struct {
	TenantID string
	APIKey   string
	Kind     marketplace.Kind
	// MaxPages caps how many pages this run may fetch; 0 means the
	// orchestrator's configured default.
	MaxPages   int
	OnProgress func(Progress)
}

// identityKeys lists the candidate identity fields for a kind, highest
// priority first. Upstream data is inconsistent about which one is
// populated, so resolution checks all of them.
func identityKeys(kind marketplace.Kind) []string {
	switch kind {
	case marketplace.KindProducts:
		return []string{"tsin_id", "offer_id", "sku"}
	case marketplace.KindSales:
		return []string{"order_id", "sale_id"}
	}
	return nil
}

// fieldString renders a record field for key comparison. Upstream sends ids
// as either strings or JSON numbers depending on the endpoint; the rendering
// must agree with the store's filter comparison, so both sides share
// store.FieldString.
func fieldString(record map[string]any, field string) string {
	v, ok := record[field]
	if !ok || v == nil {
		return ""
	}
	return store.FieldString(v)
}

// resolvedIdentity returns "field=value" for the highest-priority populated
// identity key, or "" when the record carries none.
func resolvedIdentity(kind marketplace.Kind, record map[string]any) string {
	for _, key := range identityKeys(kind) {
		if v := fieldString(record, key); v != "" {
			return key + "=" + v
		}
	}
	return ""
}
