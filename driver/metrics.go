package driver

import (
	"github.com/prometheus/client_golang/prometheus"
)

// verifyTotal and pendingTotal are package-level Prometheus collectors
// registered against the default registry, safe to leave unscraped. They
// aren't wired to any HTTP handler here — the CLI is a one-shot process —
// but a long-running embedder can register prometheus.DefaultGatherer's
// handler itself.
var (
	verifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "colibri_verify_total",
		Help: "Total proof verifications by outcome.",
	}, []string{"outcome"})

	pendingTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "colibri_pending_total",
		Help: "Total data requests queued by the verification driver.",
	})
)

func init() {
	prometheus.MustRegister(verifyTotal, pendingTotal)
}
