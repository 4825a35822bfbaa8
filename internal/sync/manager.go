package sync

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-sync-service/internal/logger"
	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/store"
)

// Manager fronts the orchestrator and cleaner: it serializes runs per
// (tenant, kind) pair within the process and writes the sync_runs audit
// trail.
type Manager struct {
	store   store.Store
	orch    *Orchestrator
	cleaner *Cleaner
	mu      sync.Mutex
	active  map[string]bool
}

func NewManager(st store.Store, orch *Orchestrator) *Manager {
	return &Manager{
		store:   st,
		orch:    orch,
		cleaner: NewCleaner(st),
		active:  make(map[string]bool),
	}
}

func runKey(tenantID string, kind marketplace.Kind) string {
	return tenantID + "|" + string(kind)
}

func (m *Manager) acquire(tenantID string, kind marketplace.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := runKey(tenantID, kind)
	if m.active[key] {
		return fmt.Errorf("sync already running for tenant %s kind %s", tenantID, kind)
	}
	m.active[key] = true
	return nil
}

func (m *Manager) release(tenantID string, kind marketplace.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, runKey(tenantID, kind))
}

// RunSync executes one sync run. A second trigger for an already-active
// (tenant, kind) pair is rejected, not queued.
func (m *Manager) RunSync(ctx context.Context, p RunParams) (Result, error) {
	if err := m.acquire(p.TenantID, p.Kind); err != nil {
		return Result{}, err
	}
	defer m.release(p.TenantID, p.Kind)

	run := &store.RunRecord{
		ID:        uuid.NewString(),
		TenantID:  p.TenantID,
		Kind:      string(p.Kind),
		StartedAt: time.Now().UTC(),
		Status:    "running",
	}
	if err := m.store.CreateRun(ctx, run); err != nil {
		logger.Log.Warn("failed to record run start", zap.Error(err))
	}

	result := m.orch.RunSync(ctx, p)

	run.CompletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	run.ItemsFetched = result.TotalItemsFetched
	run.NewRecords = result.NewRecords
	run.UpdatedRecords = result.UpdatedRecords
	run.ErrorCount = result.TotalErrors
	run.Message = sql.NullString{String: result.Message, Valid: result.Message != ""}
	if result.Success {
		run.Status = "completed"
	} else {
		run.Status = "failed"
	}
	if err := m.store.UpdateRun(ctx, run); err != nil {
		logger.Log.Warn("failed to record run completion", zap.Error(err))
	}

	return result, nil
}

// RunCleanup executes the dedup sweep under the same per-pair serialization
// as a sync run, so a sweep never races its own tenant's sync.
func (m *Manager) RunCleanup(ctx context.Context, tenantID string, kind marketplace.Kind) (CleanupResult, error) {
	if err := m.acquire(tenantID, kind); err != nil {
		return CleanupResult{}, err
	}
	defer m.release(tenantID, kind)

	return m.cleaner.Dedupe(ctx, tenantID, kind), nil
}

// ActiveRuns lists the (tenant, kind) pairs currently running.
func (m *Manager) ActiveRuns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.active))
	for k := range m.active {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ListRuns returns the persisted audit trail, newest first.
func (m *Manager) ListRuns(ctx context.Context, limit, offset int) ([]*store.RunRecord, error) {
	return m.store.ListRuns(ctx, limit, offset)
}
