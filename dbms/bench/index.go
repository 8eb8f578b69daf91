// Package bench drives cmd/dbbench's workload mix against any backend
// satisfying Index, timing each workload stage and reporting its mean
// per-operation latency for comparison across backends.
package bench

// Index is the common shape cmd/dbbench benchmarks against: the
// primary btree.Tree (via PrimaryIndex), dbms/altindex/btree, and
// dbms/altindex/lsm (each via its AsIndex adapter) all satisfy it.
type Index interface {
	Insert(key int64, value []byte) error
	Get(key int64) ([]byte, error)
	Range(start, end int64) (Iterator, error)
	Close() error
}

// Iterator scans a range of key-value pairs in ascending key order.
type Iterator interface {
	Next() bool
	Key() int64
	Value() []byte
	Error() error
	Close() error
}

// CacheReporter is implemented by backends whose storage sits behind a
// page cache they can introspect (dbms/altindex/btree, via
// dbms/benchpager). RunSuite type-asserts for it and records hit/miss/
// eviction counts alongside latency when it's present; backends like
// dbms/altindex/lsm, whose cache is internal to Pebble, simply don't
// satisfy it and are reported without cache figures.
type CacheReporter interface {
	CacheStats() (hits, misses, evictions int64)
}
