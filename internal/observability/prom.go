package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Auth outcomes (internal diagnostics; the API answers stay uniform)
	AuthOutcomes *prometheus.CounterVec

	// Mail (worker)
	MailDuration  *prometheus.HistogramVec
	MailResults   *prometheus.CounterVec
	MailInFlight  prometheus.Gauge
	QueueDepthErr prometheus.Counter
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricearb",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pricearb",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pricearb",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pricearb",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricearb",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		AuthOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricearb",
				Subsystem: "auth",
				Name:      "outcomes_total",
				Help:      "Auth operation outcomes by op and result.",
			},
			[]string{"op", "result"}, // op=register|login|me, result=ok|rejected|error
		),
		MailDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pricearb",
				Subsystem: "mail",
				Name:      "duration_seconds",
				Help:      "Mail job execution duration by type and result",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mail_type", "result"}, // result=done|retry|failed
		),
		MailResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricearb",
				Subsystem: "mail",
				Name:      "results_total",
				Help:      "Mail job outcomes by type and result.",
			},
			[]string{"mail_type", "result"},
		),
		MailInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pricearb",
				Subsystem: "mail",
				Name:      "in_flight",
				Help:      "Current number of executing mail jobs (per process)",
			},
		),
		QueueDepthErr: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pricearb",
				Subsystem: "mail",
				Name:      "queue_errors_total",
				Help:      "Errors while polling the mail queue.",
			},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.AuthOutcomes,
		p.MailDuration, p.MailResults, p.MailInFlight, p.QueueDepthErr,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
