package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"tiny_mvcc/pkg/a_misc/metrics"
)

// Observed wraps a Store, counting its operations into prometheus collectors
// and tracing them to the log.
type Observed struct {
	Store

	ops     *prometheus.CounterVec
	written prometheus.Counter
	rows    prometheus.Counter
	backend string
}

// Observe wraps |store|, labeling its metrics with |backend|.
func Observe(backend string, store Store) *Observed {
	return &Observed{
		Store:   store,
		ops:     metrics.StoreOpsTotal.MustCurryWith(prometheus.Labels{"backend": backend}),
		written: metrics.StoreBytesWrittenTotal.WithLabelValues(backend),
		rows:    metrics.StoreScanRowsTotal.WithLabelValues(backend),
		backend: backend,
	}
}

func (o *Observed) Get(key []byte) ([]byte, bool, error) {
	o.ops.WithLabelValues(metrics.OpGet).Inc()
	return o.Store.Get(key)
}

func (o *Observed) Set(key, value []byte) error {
	o.ops.WithLabelValues(metrics.OpSet).Inc()
	o.written.Add(float64(len(key) + len(value)))

	if log.IsLevelEnabled(log.TraceLevel) {
		log.WithFields(log.Fields{"backend": o.backend, "key": key, "size": len(value)}).Trace("store set")
	}
	return o.Store.Set(key, value)
}

func (o *Observed) Delete(key []byte) error {
	o.ops.WithLabelValues(metrics.OpDelete).Inc()

	if log.IsLevelEnabled(log.TraceLevel) {
		log.WithFields(log.Fields{"backend": o.backend, "key": key}).Trace("store delete")
	}
	return o.Store.Delete(key)
}

func (o *Observed) Scan(rng Range, reverse bool, fn func(key, value []byte) bool) error {
	o.ops.WithLabelValues(metrics.OpScan).Inc()

	var rows int
	var err = o.Store.Scan(rng, reverse, func(key, value []byte) bool {
		rows++
		return fn(key, value)
	})
	o.rows.Add(float64(rows))
	return err
}
