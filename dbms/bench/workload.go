package bench

import (
	"math/rand"

	"github.com/relicdb/storedb/dbms/row"
)

// WorkloadType names one of the three op-mix shapes RunSuite drives
// against a backend.
type WorkloadType string

const (
	OLTP      WorkloadType = "OLTP (90/10)"
	OLAP      WorkloadType = "OLAP (10/90)"
	Reporting WorkloadType = "Reporting (Range)"
)

func syntheticValue(key int64) []byte {
	buf := row.Encode(row.Row{
		ID:       uint32(key),
		Username: "bench",
		Email:    "bench@example.com",
	})
	return buf[:]
}

// ExecuteWorkload runs ops operations against idx, mixing reads,
// writes, and range scans in the proportion named by wType.
func ExecuteWorkload(idx Index, wType WorkloadType, ops int) {
	for i := 0; i < ops; i++ {
		choice := rand.Intn(100)
		key := int64(rand.Intn(ops))

		switch wType {
		case OLTP:
			if choice < 90 {
				_, _ = idx.Get(key)
			} else {
				_ = idx.Insert(key, syntheticValue(key))
			}
		case OLAP:
			if choice < 10 {
				_, _ = idx.Get(key)
			} else {
				_ = idx.Insert(key, syntheticValue(key))
			}
		case Reporting:
			it, err := idx.Range(key, key+100)
			if err != nil || it == nil {
				continue
			}
			for it.Next() {
			}
			it.Close()
		}
	}
}
