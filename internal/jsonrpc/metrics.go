package jsonrpc

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts dispatched requests by method and outcome.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evm_adapter",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "JSON-RPC requests by method and response code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "evm_adapter",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "Time spent in the router call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(method string, resp *Response, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "0"
	if resp != nil && resp.Error != nil {
		code = strconv.Itoa(resp.Error.Code)
	}
	// Unknown methods are folded into one label to bound cardinality.
	if resp != nil && resp.Error != nil && resp.Error.Code == CodeMethodNotFound {
		method = "unknown"
	}
	m.requests.WithLabelValues(method, code).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}
