// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordSignUpOutcome(outcome string)
	RecordSessionEvent(eventType string)
	RecordUpstreamRequest(statusCode int)
	RecordUpstreamLatency(duration time.Duration)
	RecordProxyRequest(function string, statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signupOutcomes  *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
	upstreamStatus  *prometheus.CounterVec
	upstreamLatency prometheus.Histogram
	proxyRequests   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signupOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clanova_signup_outcomes_total",
			Help: "サインアップ結果区分別の合計数",
		}, []string{"outcome"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clanova_session_events_total",
			Help: "セッションイベント種別の合計数",
		}, []string{"event"}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clanova_upstream_status_total",
			Help: "上流ゲームAPIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clanova_upstream_latency_seconds",
			Help:    "上流ゲームAPIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clanova_proxy_requests_total",
			Help: "プロキシ関数別・ステータスコード別のリクエスト数",
		}, []string{"function", "status_code"}),
	}

	reg.MustRegister(
		c.signupOutcomes,
		c.sessionEvents,
		c.upstreamStatus,
		c.upstreamLatency,
		c.proxyRequests,
	)

	return c
}

// RecordSignUpOutcome はサインアップ結果区分を記録する。
func (c *Collector) RecordSignUpOutcome(outcome string) {
	c.signupOutcomes.WithLabelValues(outcome).Inc()
}

// RecordSessionEvent はセッションイベントを記録する。
func (c *Collector) RecordSessionEvent(eventType string) {
	c.sessionEvents.WithLabelValues(eventType).Inc()
}

// RecordUpstreamRequest は上流APIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamRequest(statusCode int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency は上流APIのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(duration time.Duration) {
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordProxyRequest はプロキシ関数の呼び出しを記録する。
func (c *Collector) RecordProxyRequest(function string, statusCode int) {
	c.proxyRequests.WithLabelValues(function, strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var _ MetricsCollector = (*Collector)(nil)
