package command

import (
	"context"
	"strconv"

	"pybun/internal/cache"
	"pybun/internal/schema"
)

// DefaultGCBudgetBytes is the opportunistic-GC budget applied after an
// install when the active profile asks for one (SPEC_FULL.md §11's profiles
// supplement; internal/profile.Config.GCAfterInstall). It is also the
// default value of the explicit `gc` command's --max-size flag in
// cmd/pybun.
const DefaultGCBudgetBytes int64 = 1 << 30 // 1 GiB

// GCOptions mirrors spec.md §6's `gc [--max-size <size>] [--dry-run]`.
type GCOptions struct {
	MaxSizeBytes int64
	DryRun       bool
}

// GCDetail is the envelope detail for `gc`.
type GCDetail struct {
	Summary       string            `json:"summary"`
	DryRun        bool              `json:"dry_run"`
	TotalBytes    int64             `json:"total_bytes"`
	BudgetBytes   int64             `json:"budget_bytes"`
	RemainingSize int64             `json:"remaining_bytes"`
	Evicted       []cache.Candidate `json:"evicted"`
}

// GC evicts least-recently-used cache entries until the cache is at or
// under opts.MaxSizeBytes (spec.md §4.3/§8: "gc --dry-run removes
// nothing; gc without dry-run reduces total size to <= max-size").
func GC(ctx context.Context, deps Deps, opts GCOptions) schema.Envelope {
	return run("gc", func(collector *schema.Collector) (any, error) {
		collector.Emit(schema.EventGCStart, map[string]any{"dry_run": opts.DryRun, "max_size": opts.MaxSizeBytes})

		plan, err := cache.Collect(deps.Cache, opts.MaxSizeBytes, opts.DryRun)
		if err != nil {
			return nil, err
		}

		collector.Emit(schema.EventGCComplete, map[string]any{
			"evicted_count":  len(plan.Evicted),
			"remaining_size": plan.RemainingSize,
		})

		summary := "collected cache"
		if opts.DryRun {
			summary = "dry run: would evict " + strconv.Itoa(len(plan.Evicted)) + " entries"
		} else {
			summary = "evicted " + strconv.Itoa(len(plan.Evicted)) + " entries"
		}

		return GCDetail{
			Summary:       summary,
			DryRun:        opts.DryRun,
			TotalBytes:    plan.TotalBytes,
			BudgetBytes:   plan.BudgetBytes,
			RemainingSize: plan.RemainingSize,
			Evicted:       plan.Evicted,
		}, nil
	})
}

// gcOpportunistic runs a real (non-dry-run) GC pass at the default budget,
// for Install's profile.GCAfterInstall hook. Its own failures are the
// caller's concern to swallow (a cache-cleanup failure must never turn a
// successful install into a failed command); this helper just does the
// work and reports what happened.
func gcOpportunistic(deps Deps) (cache.Plan, error) {
	return cache.Collect(deps.Cache, DefaultGCBudgetBytes, false)
}

