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
	RecordHTTPStatus(statusCode int)
	RecordRemoteCall(operation string, statusCode int)
	RecordRemoteLatency(operation string, duration time.Duration)
	RecordLikeToggle(liked bool)
	RecordSelfLikeRejected()
	RecordValidationRejected(form string)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	remoteCalls    *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	likeToggles    *prometheus.CounterVec
	selfLikeReject prometheus.Counter
	validationFail *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "historivault_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "historivault_remote_calls_total",
			Help: "リモートアーティファクトAPI呼び出しの合計数（操作・ステータス別）",
		}, []string{"operation", "status_code"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "historivault_remote_latency_seconds",
			Help:    "リモートアーティファクトAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		likeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "historivault_like_toggles_total",
			Help: "いいねトグルの合計数（サーバー判定の結果別）",
		}, []string{"result"}),
		selfLikeReject: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "historivault_self_like_rejected_total",
			Help: "所有者自身によるいいねをネットワーク到達前に拒否した合計数",
		}),
		validationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "historivault_validation_rejected_total",
			Help: "フォームバリデーションで拒否された送信の合計数（フォーム別）",
		}, []string{"form"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "historivault_sessions_purged_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.remoteCalls,
		c.remoteLatency,
		c.likeToggles,
		c.selfLikeReject,
		c.validationFail,
		c.sessionsPurged,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRemoteCall はリモートAPI呼び出しの結果を記録する。
func (c *Collector) RecordRemoteCall(operation string, statusCode int) {
	c.remoteCalls.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

// RecordRemoteLatency はリモートAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordRemoteLatency(operation string, duration time.Duration) {
	c.remoteLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLikeToggle はいいねトグルの結果を記録する。
func (c *Collector) RecordLikeToggle(liked bool) {
	result := "unliked"
	if liked {
		result = "liked"
	}
	c.likeToggles.WithLabelValues(result).Inc()
}

// RecordSelfLikeRejected は自分の投稿へのいいね拒否を記録する。
func (c *Collector) RecordSelfLikeRejected() {
	c.selfLikeReject.Inc()
}

// RecordValidationRejected はバリデーション拒否を記録する。
func (c *Collector) RecordValidationRejected(form string) {
	c.validationFail.WithLabelValues(form).Inc()
}

// RecordSessionsPurged は期限切れセッションの削除件数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
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

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
