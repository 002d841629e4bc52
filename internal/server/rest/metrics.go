package rest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests       *prometheus.CounterVec
	uploadedBytes  prometheus.Counter
	uploadFailures prometheus.Counter
	configUpdates  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cubicd_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		uploadedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "cubicd_upload_bytes_total",
			Help: "Bytes received by file uploads.",
		}),
		uploadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cubicd_upload_failures_total",
			Help: "Uploads that did not reach the store. The client still sees ok:true.",
		}),
		configUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cubicd_config_updates_total",
			Help: "Configuration update attempts by result.",
		}, []string{"result"}),
	}
}
