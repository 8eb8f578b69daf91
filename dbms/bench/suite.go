package bench

import (
	"fmt"
	"time"
)

// cacheSnapshot reads idx's cumulative cache hit rate and eviction
// count via CacheReporter, or zero values if idx doesn't satisfy it.
func cacheSnapshot(idx Index) (hitRate float64, evictions int64) {
	cr, ok := idx.(CacheReporter)
	if !ok {
		return 0, 0
	}
	hits, misses, ev := cr.CacheStats()
	total := hits + misses
	if total == 0 {
		return 0, ev
	}
	return float64(hits) / float64(total), ev
}

// RunSuite loads idx with n sequential keys, then drives each
// WorkloadType against it, returning one Result per stage under the
// given backend name/config label. Each Result's CacheHitRate and
// CacheEvictions reflect idx's cumulative cache behavior up to that
// point, for backends that expose it.
func RunSuite(name, config string, idx Index, n int) []Result {
	fmt.Printf("Testing %s (Config: %s)\n", name, config)
	var results []Result

	start := time.Now()
	for k := 0; k < n; k++ {
		_ = idx.Insert(int64(k), syntheticValue(int64(k)))
	}
	insertLatency := time.Since(start).Nanoseconds() / int64(n)

	stats := SampleMemory()
	hitRate, evictions := cacheSnapshot(idx)
	results = append(results, Result{
		Name:           name,
		Config:         config,
		Operation:      "Footprint_SteadyState",
		LatencyNs:      insertLatency,
		MemMB:          stats.AllocMB,
		Objects:        stats.HeapObjects,
		CacheHitRate:   hitRate,
		CacheEvictions: evictions,
	})

	start = time.Now()
	ExecuteWorkload(idx, OLTP, n/2)
	hitRate, evictions = cacheSnapshot(idx)
	results = append(results, Result{
		Name: name, Config: config, Operation: "Workload_OLTP",
		LatencyNs:      time.Since(start).Nanoseconds() / int64(n/2),
		MemMB:          SampleMemory().AllocMB,
		CacheHitRate:   hitRate,
		CacheEvictions: evictions,
	})

	start = time.Now()
	ExecuteWorkload(idx, OLAP, n/2)
	hitRate, evictions = cacheSnapshot(idx)
	results = append(results, Result{
		Name: name, Config: config, Operation: "Workload_OLAP",
		LatencyNs:      time.Since(start).Nanoseconds() / int64(n/2),
		MemMB:          SampleMemory().AllocMB,
		CacheHitRate:   hitRate,
		CacheEvictions: evictions,
	})

	start = time.Now()
	ExecuteWorkload(idx, Reporting, 100)
	hitRate, evictions = cacheSnapshot(idx)
	results = append(results, Result{
		Name: name, Config: config, Operation: "Workload_Range",
		LatencyNs:      time.Since(start).Nanoseconds() / 100,
		MemMB:          SampleMemory().AllocMB,
		CacheHitRate:   hitRate,
		CacheEvictions: evictions,
	})

	return results
}
