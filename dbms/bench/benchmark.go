package bench

import (
	"encoding/csv"
	"runtime"
	"strconv"
)

// Result is one timed measurement RunSuite records: a latency or a
// memory footprint sample for one backend configuration at one point
// in the suite. CacheHitRate and CacheEvictions are zero for backends
// that don't satisfy CacheReporter.
type Result struct {
	Name           string
	Config         string
	Operation      string
	LatencyNs      int64
	MemMB          uint64
	Objects        uint64
	CacheHitRate   float64
	CacheEvictions int64
}

// MemoryStats is a snapshot of the runtime's live heap.
type MemoryStats struct {
	AllocMB      uint64
	TotalAllocMB uint64
	HeapObjects  uint64
}

// SampleMemory forces a GC so the snapshot reflects live data rather
// than garbage awaiting collection.
func SampleMemory() MemoryStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
	}
}

// Record appends res as one row to w.
func Record(w *csv.Writer, res Result) {
	w.Write([]string{
		res.Name,
		res.Config,
		res.Operation,
		strconv.FormatInt(res.LatencyNs, 10),
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
		strconv.FormatFloat(res.CacheHitRate, 'f', 4, 64),
		strconv.FormatInt(res.CacheEvictions, 10),
	})
}
