package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketplace-sync-service/internal/logger"
	"marketplace-sync-service/internal/marketplace"
)

// PageFetcher is the pagination boundary; satisfied by marketplace.Client.
type PageFetcher interface {
	FetchPage(ctx context.Context, kind marketplace.Kind, apiKey string, pageNumber, pageSize int) (*marketplace.Page, error)
}

// OrchestratorConfig tunes the page loop.
type OrchestratorConfig struct {
	PageSize int
	// DefaultMaxPages caps runs that don't set their own cap; 0 = unlimited.
	DefaultMaxPages int
	// RateLimitCooldown is how long a 429 pauses before retrying the page.
	RateLimitCooldown time.Duration
	// RateLimitMaxRetries bounds same-page 429 retries; 0 = unlimited.
	RateLimitMaxRetries int
}

// Orchestrator drives one end-to-end page-by-page sync run.
type Orchestrator struct {
	fetcher  PageFetcher
	resolver *Resolver
	writer   *Writer
	cfg      OrchestratorConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(fetcher PageFetcher, resolver *Resolver, writer *Writer, cfg OrchestratorConfig) *Orchestrator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = 60 * time.Second
	}
	return &Orchestrator{
		fetcher:  fetcher,
		resolver: resolver,
		writer:   writer,
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

// pageOutcome is the explicit per-page result the fetch loop consumes.
type pageOutcome int

const (
	pageFetched pageOutcome = iota
	pageSkipped
	pageRetryAfter
)

type pageResult struct {
	outcome pageOutcome
	page    *marketplace.Page
	err     *SyncError
}

func (o *Orchestrator) fetchOne(ctx context.Context, p RunParams, pageNumber int) pageResult {
	page, err := o.fetcher.FetchPage(ctx, p.Kind, p.APIKey, pageNumber, o.cfg.PageSize)
	if err == nil {
		return pageResult{outcome: pageFetched, page: page}
	}

	serr := classifyPageError(err)
	if serr.Code == ErrCodeRateLimited {
		return pageResult{outcome: pageRetryAfter, err: serr}
	}
	return pageResult{outcome: pageSkipped, err: serr}
}

// RunSync fetches every allowed page for one (tenant, kind) pair, then
// resolves and flushes the full buffer through the batched writer.
//
// A generic page failure loses that page's worth of items and the loop moves
// on; a 429 waits out the cooldown and retries the same page. Success is
// false only when zero items were fetched and at least one page failed;
// degraded runs report Success=true with TotalErrors set.
func (o *Orchestrator) RunSync(ctx context.Context, p RunParams) Result {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = o.cfg.DefaultMaxPages
	}

	logger.Log.Info("sync run started",
		zap.String("tenant", p.TenantID),
		zap.String("kind", string(p.Kind)),
		zap.Int("pageSize", o.cfg.PageSize),
		zap.Int("maxPages", maxPages),
	)

	var (
		buffer       []map[string]any
		itemsFetched int
		errorItems   int
		lastErr      *SyncError
		rlRetries    int
	)

	page := 1
	totalPages := 1 // provisional until page 1 reports the real total

	for page <= totalPages {
		if ctx.Err() != nil {
			lastErr = &SyncError{Op: OpFetch, Code: ErrCodeNetworkFailure, Err: ctx.Err()}
			break
		}

		res := o.fetchOne(ctx, p, page)

		if res.outcome == pageRetryAfter {
			rlRetries++
			if o.cfg.RateLimitMaxRetries > 0 && rlRetries > o.cfg.RateLimitMaxRetries {
				logger.Log.Warn("rate limit retries exhausted, skipping page",
					zap.Int("page", page), zap.Int("retries", rlRetries-1))
				res = pageResult{outcome: pageSkipped, err: res.err}
			} else {
				logger.Log.Warn("rate limited, cooling down",
					zap.Int("page", page),
					zap.Duration("cooldown", o.cfg.RateLimitCooldown),
				)
				if err := o.sleep(ctx, o.cfg.RateLimitCooldown); err != nil {
					lastErr = res.err
					break
				}
				continue // same page
			}
		}

		if res.outcome == pageSkipped {
			// One page's worth of items is assumed lost.
			errorItems += o.cfg.PageSize
			lastErr = res.err
			rlRetries = 0
			logger.Log.Warn("page failed, continuing",
				zap.Int("page", page),
				zap.Int("totalPages", totalPages),
				zap.Error(res.err),
			)
			o.progress(p, page, totalPages, itemsFetched, errorItems)
			page++
			continue
		}

		rlRetries = 0
		if page == 1 {
			totalPages = effectiveTotalPages(res.page.TotalCount, o.cfg.PageSize, maxPages)
		}

		buffer = append(buffer, res.page.Items...)
		itemsFetched += len(res.page.Items)
		o.progress(p, page, totalPages, itemsFetched, errorItems)

		if len(res.page.Items) < o.cfg.PageSize {
			// Short page signals the last page.
			break
		}
		page++
	}

	if itemsFetched == 0 {
		if lastErr != nil {
			logger.Log.Error("sync run failed, no items fetched",
				zap.String("tenant", p.TenantID),
				zap.String("kind", string(p.Kind)),
				zap.Error(lastErr),
			)
			return Result{
				Success:     false,
				Message:     fmt.Sprintf("sync failed: %v", lastErr),
				TotalErrors: errorItems,
			}
		}
		return Result{Success: true, Message: "no items to sync"}
	}

	stats := o.flush(ctx, p, buffer, &errorItems)

	msg := fmt.Sprintf("synced %d items (%d new, %d updated)",
		itemsFetched, stats.NewCount, stats.UpdatedCount)
	if errorItems > 0 {
		msg += fmt.Sprintf(", %d errors", errorItems)
	}

	logger.Log.Info("sync run finished",
		zap.String("tenant", p.TenantID),
		zap.String("kind", string(p.Kind)),
		zap.Int("itemsFetched", itemsFetched),
		zap.Int("new", stats.NewCount),
		zap.Int("updated", stats.UpdatedCount),
		zap.Int("errors", errorItems),
	)

	return Result{
		Success:           true,
		Message:           msg,
		TotalItemsFetched: itemsFetched,
		TotalErrors:       errorItems,
		NewRecords:        stats.NewCount,
		UpdatedRecords:    stats.UpdatedCount,
	}
}

// flush resolves every buffered record and hands the lot to the writer.
// The whole buffer is held in memory for the run; the writer chunks commits
// at the store's batch limit.
func (o *Orchestrator) flush(ctx context.Context, p RunParams, buffer []map[string]any, errorItems *int) WriteStats {
	records := make([]map[string]any, 0, len(buffer))
	matches := make([]Match, 0, len(buffer))

	for _, record := range buffer {
		match, err := o.resolver.FindExisting(ctx, p.TenantID, p.Kind, record)
		if err != nil {
			*errorItems++
			logger.Log.Warn("duplicate resolution failed, skipping record",
				zap.String("identity", resolvedIdentity(p.Kind, record)),
				zap.Error(err),
			)
			continue
		}
		records = append(records, record)
		matches = append(matches, match)
	}

	stats, err := o.writer.WriteAll(ctx, p.TenantID, p.Kind, records, matches)
	if err != nil {
		*errorItems += len(records)
		logger.Log.Error("flush failed", zap.Error(err))
		return stats
	}
	*errorItems += stats.ErrorCount
	return stats
}

func (o *Orchestrator) progress(p RunParams, page, totalPages, fetched, errs int) {
	if p.OnProgress == nil {
		return
	}
	p.OnProgress(Progress{
		Page:         page,
		TotalPages:   totalPages,
		ItemsFetched: fetched,
		ErrorItems:   errs,
	})
}

// effectiveTotalPages is the upstream-reported page count capped by the
// caller's limit, floored at 1.
func effectiveTotalPages(totalCount, pageSize, maxPages int) int {
	pages := (totalCount + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}
	return pages
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
