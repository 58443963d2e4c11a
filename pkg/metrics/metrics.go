package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	questionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_analytics_questions_total",
		Help: "Answered questions by intent, resolution path and confidence",
	}, []string{"intent", "path", "confidence"})

	questionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shop_analytics_question_latency_ms",
		Help:    "End-to-end latency of question resolution in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
	}, []string{"path"})

	shopifyOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_analytics_shopifyql_outcomes_total",
		Help: "ShopifyQL executions by outcome (table/transport_error/parse_error)",
	}, []string{"outcome"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_analytics_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "method", "status"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(questionsTotal, questionLatency, shopifyOutcomes, httpRequests)
	})
}

// Register はデフォルトレジストリにコレクタを登録します（複数回呼んでも安全）。
func Register() {
	ensureRegistered()
}

// ObserveQuestion records one answered question.
func ObserveQuestion(intent, path, confidence string, duration time.Duration) {
	ensureRegistered()
	if path == "" {
		path = "none"
	}
	questionsTotal.WithLabelValues(intent, path, confidence).Inc()
	questionLatency.WithLabelValues(path).Observe(float64(duration.Milliseconds()))
}

// IncShopifyOutcome counts a ShopifyQL execution result.
func IncShopifyOutcome(outcome string) {
	ensureRegistered()
	shopifyOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records a served HTTP request.
func ObserveHTTP(route, method string, status int) {
	ensureRegistered()
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// Collectors exposes all collectors for external registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{questionsTotal, questionLatency, shopifyOutcomes, httpRequests}
}
