package boilerplate

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"tiny_mvcc/pkg/a_misc/metrics"
)

// DiagnosticsConfig configures pull-based application metrics.
type DiagnosticsConfig struct {
	Address string `long:"address" env:"ADDRESS" description:"Address at which /debug/metrics and /debug/ready are served. Disabled if empty"`
}

// InitDiagnostics registers engine metrics and, if an address is configured,
// serves them over HTTP in the background.
func InitDiagnostics(cfg DiagnosticsConfig) {
	prometheus.MustRegister(metrics.Collectors()...)

	if cfg.Address == "" {
		return
	}
	var mux = http.NewServeMux()
	mux.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/debug/metrics", promhttp.Handler())

	go func() {
		var err = http.ListenAndServe(cfg.Address, mux)
		log.WithFields(log.Fields{"err": err, "address": cfg.Address}).Error("diagnostics server stopped")
	}()
	log.WithField("address", cfg.Address).Info("serving diagnostics")
}
