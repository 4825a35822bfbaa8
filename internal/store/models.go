package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// BatchLimit is the maximum number of operations one atomic batch accepts.
const BatchLimit = 500

var ErrNotFound = errors.New("document not found")

// Document is one stored record. Data is the full field map, including the
// engine's bookkeeping fields.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is an equality constraint on a top-level document field.
type Filter struct {
	Field string
	Value string
}

// FieldString renders a scalar field value for filter comparison, matching
// how MySQL's JSON_UNQUOTE(JSON_EXTRACT(...)) renders the same value. In
// particular, numeric ids must never take the %v scientific form.
func FieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprintf("%v", v)
}

// Write is one document write inside an atomic batch. Merge selects
// merge-write semantics (existing fields not named in Data survive);
// otherwise the document is replaced.
type Write struct {
	ID    string
	Data  map[string]any
	Merge bool
}

// RunRecord is the persisted audit row for one sync or cleanup run.
type RunRecord struct {
	ID             string         `db:"id"`
	TenantID       string         `db:"tenant_id"`
	Kind           string         `db:"kind"`
	StartedAt      time.Time      `db:"started_at"`
	CompletedAt    sql.NullTime   `db:"completed_at"`
	ItemsFetched   int            `db:"items_fetched"`
	NewRecords     int            `db:"new_records"`
	UpdatedRecords int            `db:"updated_records"`
	ErrorCount     int            `db:"error_count"`
	Status         string         `db:"status"`
	Message        sql.NullString `db:"message"`
}
