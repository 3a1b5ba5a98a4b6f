package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MusicianOperations counts resource operations by name and result
var MusicianOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "musicians_operations_total",
		Help: "Total number of musician operations by outcome",
	},
	[]string{"op", "result"},
)

// ImageUploads counts calls to the media host
var ImageUploads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "musicians_image_uploads_total",
		Help: "Total number of image uploads to the media host",
	},
	[]string{"result"},
)

// HTTP request metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musicians_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "musicians_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "musicians_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "musicians_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "musicians_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

// Operation results
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Result maps an error onto a result label
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func init() {
	prometheus.MustRegister(MusicianOperations, ImageUploads)
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)
}
