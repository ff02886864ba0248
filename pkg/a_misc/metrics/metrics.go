package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for store operation metrics.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpDelete = "delete"
	OpScan   = "scan"
)

// Collectors for transaction lifecycle metrics.
var (
	TxnBeginTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mvcc_txn_begin_total",
		Help: "Cumulative number of begun transactions, by mode.",
	}, []string{"mode"})
	TxnCommitTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mvcc_txn_commit_total",
		Help: "Cumulative number of committed read-write transactions.",
	})
	TxnRollbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mvcc_txn_rollback_total",
		Help: "Cumulative number of rolled back read-write transactions.",
	})
	TxnRollbackWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mvcc_txn_rollback_writes_total",
		Help: "Cumulative number of versioned writes undone by rollbacks.",
	})
	TxnConflictTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mvcc_txn_write_conflict_total",
		Help: "Cumulative number of writes rejected with a write-write conflict.",
	})
	TxnActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mvcc_txn_active",
		Help: "Number of currently active read-write transactions.",
	})
	NextVersion = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mvcc_next_version",
		Help: "Next version to be allocated by the oracle.",
	})
)

// Collectors for ordered store metrics.
var (
	StoreOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mvcc_store_ops_total",
		Help: "Cumulative number of ordered store operations, by backend and op.",
	}, []string{"backend", "op"})
	StoreBytesWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mvcc_store_written_bytes_total",
		Help: "Cumulative number of key and value bytes written to the ordered store.",
	}, []string{"backend"})
	StoreScanRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mvcc_store_scan_rows_total",
		Help: "Cumulative number of rows visited by ordered store scans.",
	}, []string{"backend"})
)

// Collectors returns all collectors of the package, for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		TxnBeginTotal,
		TxnCommitTotal,
		TxnRollbackTotal,
		TxnRollbackWritesTotal,
		TxnConflictTotal,
		TxnActive,
		NextVersion,
		StoreOpsTotal,
		StoreBytesWrittenTotal,
		StoreScanRowsTotal,
	}
}
