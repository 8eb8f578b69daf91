// Command dbbench runs the OLTP/OLAP/reporting workload mix from
// dbms/bench against storedb's own B+ tree and the two comparison
// backends in dbms/altindex, writing a latency/memory CSV and a PNG
// comparison chart.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/relicdb/storedb/dbms/altindex/btree"
	"github.com/relicdb/storedb/dbms/altindex/lsm"
	"github.com/relicdb/storedb/dbms/bench"
	primarybtree "github.com/relicdb/storedb/dbms/btree"
	"github.com/relicdb/storedb/dbms/pager"
)

// primaryScaleFraction is how much smaller the primary store's dataset
// is than the comparison backends': pager.MaxPages caps its page count,
// so it cannot hold a full-scale dataset before its table-full limit
// kicks in.
const primaryScaleFraction = 200

func main() {
	scale := flag.Int("scale", 100000, "row count for the B-tree and LSM comparison backends")
	csvPath := flag.String("csv", "dbbench_results.csv", "path to write the results CSV")
	pngPath := flag.String("png", "dbbench_results.png", "path to write the latency comparison chart")
	flag.Parse()

	primaryScale := *scale / primaryScaleFraction
	if primaryScale < 1 {
		primaryScale = 1
	}

	dir, err := os.MkdirTemp("", "dbbench")
	if err != nil {
		log.Fatalf("dbbench: tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	f, err := os.Create(*csvPath)
	if err != nil {
		log.Fatalf("dbbench: create csv: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"Structure", "Config", "TestType", "LatencyNs", "MemMB", "HeapObjects", "CacheHitRate", "CacheEvictions"})

	var results []bench.Result
	record := func(name, config string, idx bench.Index, n int) {
		for _, r := range bench.RunSuite(name, config, idx, n) {
			bench.Record(w, r)
			results = append(results, r)
		}
		idx.Close()
	}

	pg, err := pager.Open(filepath.Join(dir, "primary.db"))
	if err != nil {
		log.Fatalf("dbbench: open primary pager: %v", err)
	}
	primary, err := primarybtree.Open(pg)
	if err != nil {
		log.Fatalf("dbbench: open primary tree: %v", err)
	}
	record("storedb (B+ tree)", "page=4096", bench.PrimaryIndex{Tree: primary}, primaryScale)

	altBT, err := btree.Open(filepath.Join(dir, "altbtree"), 4096)
	if err != nil {
		log.Fatalf("dbbench: open altindex/btree: %v", err)
	}
	record("B-Tree (value heap)", "order=200", btree.AsIndex(altBT), *scale)

	altLSM, err := lsm.Open(filepath.Join(dir, "altlsm"))
	if err != nil {
		log.Fatalf("dbbench: open altindex/lsm: %v", err)
	}
	record("LSM (pebble)", "default", lsm.AsIndex(altLSM), *scale)

	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("dbbench: flush csv: %v", err)
	}

	if err := bench.PlotLatencies(results, *pngPath); err != nil {
		log.Fatalf("dbbench: plot: %v", err)
	}

	fmt.Printf("Benchmark complete: %s, %s\n", *csvPath, *pngPath)
}
