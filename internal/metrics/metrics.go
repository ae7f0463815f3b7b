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
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordSubmissionCreated()
	RecordReview(status string)
	RecordUploadFailure(reason string)
	RecordHTTPStatus(statusCode int)
	RecordUploadLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	submissionsCreated prometheus.Counter
	reviews            *prometheus.CounterVec
	uploadFailures     *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
	uploadLatency      prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainingapp_submissions_created_total",
			Help: "提出（完了記録）の合計数",
		}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingapp_reviews_total",
			Help: "レビュー判定のステータス別合計数",
		}, []string{"status"}),
		uploadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingapp_upload_failures_total",
			Help: "アップロード失敗の理由別合計数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingapp_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trainingapp_upload_latency_seconds",
			Help:    "証跡アップロードのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.submissionsCreated,
		c.reviews,
		c.uploadFailures,
		c.httpStatus,
		c.uploadLatency,
	)

	return c
}

// RecordSubmissionCreated は提出の作成・更新を記録する。
func (c *Collector) RecordSubmissionCreated() {
	c.submissionsCreated.Inc()
}

// RecordReview はレビュー判定を記録する。
func (c *Collector) RecordReview(status string) {
	c.reviews.WithLabelValues(status).Inc()
}

// RecordUploadFailure はアップロード失敗を記録する。
func (c *Collector) RecordUploadFailure(reason string) {
	c.uploadFailures.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUploadLatency は証跡アップロードのレイテンシを記録する。
func (c *Collector) RecordUploadLatency(duration time.Duration) {
	c.uploadLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
