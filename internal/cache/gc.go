package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Candidate is one blob or environment eligible for eviction.
type Candidate struct {
	Path       string
	Bytes      int64
	AccessedAt int64 // unix seconds, mtime as an access-time proxy
}

// Plan is the result of computing what GC would (or did) evict.
type Plan struct {
	TotalBytes    int64
	BudgetBytes   int64
	Evicted       []Candidate
	RemainingSize int64
}

// Collect walks packages/ and envs/ under root, evicting the
// least-recently-used entries first until the total size is at or below
// maxBytes (spec.md §4.3/§8: "gc --dry-run removes nothing; gc without
// dry-run reduces total size to <= max-size").
//
// The eviction order generalizes the LRU policy
// jinterlante1206-AleutianLocal's GraphCache/BlastRadiusCache keep with an
// in-process container/list: there is no long-lived process here to keep
// a list warm across invocations, so recency is read back from each
// blob's mtime instead, and candidates are sorted oldest-first every run.
func Collect(root Root, maxBytes int64, dryRun bool) (Plan, error) {
	candidates, total, err := scanCandidates(root)
	if err != nil {
		return Plan{}, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].AccessedAt < candidates[j].AccessedAt
	})

	plan := Plan{TotalBytes: total, BudgetBytes: maxBytes, RemainingSize: total}
	for _, c := range candidates {
		if plan.RemainingSize <= maxBytes {
			break
		}
		plan.Evicted = append(plan.Evicted, c)
		plan.RemainingSize -= c.Bytes
	}

	if dryRun {
		return plan, nil
	}

	for _, c := range plan.Evicted {
		if err := os.RemoveAll(c.Path); err != nil {
			return plan, fmt.Errorf("cache: evicting %s: %w", c.Path, err)
		}
	}
	if err := sweepEmptyDirs(filepath.Join(root.Dir, SubtreePackages)); err != nil {
		return plan, err
	}
	return plan, nil
}

func scanCandidates(root Root) ([]Candidate, int64, error) {
	var candidates []Candidate
	var total int64

	// packages/ blobs are individually removable: each leaf file is its
	// own candidate.
	err := filepath.Walk(filepath.Join(root.Dir, SubtreePackages), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		candidates = append(candidates, Candidate{Path: path, Bytes: info.Size(), AccessedAt: info.ModTime().Unix()})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("cache: scanning %s: %w", SubtreePackages, err)
	}

	// envs/ entries are whole environments: one top-level directory per
	// creation hash, removed atomically so a partially-evicted
	// environment is never left on disk.
	envBase := filepath.Join(root.Dir, SubtreeEnvs)
	envDirs, err := os.ReadDir(envBase)
	if err != nil && !os.IsNotExist(err) {
		return nil, 0, fmt.Errorf("cache: scanning %s: %w", SubtreeEnvs, err)
	}
	for _, d := range envDirs {
		if !d.IsDir() {
			continue
		}
		path := filepath.Join(envBase, d.Name())
		size, lastMod, walkErr := dirSizeAndLatestMod(path)
		if walkErr != nil {
			return nil, 0, fmt.Errorf("cache: scanning env %s: %w", d.Name(), walkErr)
		}
		candidates = append(candidates, Candidate{Path: path, Bytes: size, AccessedAt: lastMod})
		total += size
	}

	return candidates, total, nil
}

func dirSizeAndLatestMod(dir string) (size int64, latestMod int64, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		size += info.Size()
		if m := info.ModTime().Unix(); m > latestMod {
			latestMod = m
		}
		return nil
	})
	return size, latestMod, err
}

// sweepEmptyDirs removes now-empty shard directories left behind after
// eviction.
func sweepEmptyDirs(base string) error {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: reading %s: %w", base, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(base, e.Name())
		inner, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		if len(inner) == 0 {
			_ = os.Remove(dir)
		}
	}
	return nil
}
