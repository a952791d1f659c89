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
// サービス層から利用する。
type MetricsCollector interface {
	RecordPostCreated()
	RecordUploadFailure()
	RecordFollow()
	RecordUnfollow()
	RecordFeedQuery(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	postsCreated   prometheus.Counter
	uploadFailures prometheus.Counter
	follows        prometheus.Counter
	unfollows      prometheus.Counter
	feedLatency    prometheus.Histogram
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guri_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		uploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guri_image_upload_failures_total",
			Help: "画像Blobアップロード失敗の合計数",
		}),
		follows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guri_follows_total",
			Help: "フォローエッジ作成の合計数",
		}),
		unfollows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guri_unfollows_total",
			Help: "フォローエッジ削除の合計数",
		}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "guri_feed_query_latency_seconds",
			Help:    "フィード集約のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guri_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.postsCreated,
		c.uploadFailures,
		c.follows,
		c.unfollows,
		c.feedLatency,
		c.httpStatus,
	)

	return c
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordUploadFailure は画像アップロード失敗を記録する。
func (c *Collector) RecordUploadFailure() {
	c.uploadFailures.Inc()
}

// RecordFollow はフォローエッジ作成を記録する。
func (c *Collector) RecordFollow() {
	c.follows.Inc()
}

// RecordUnfollow はフォローエッジ削除を記録する。
func (c *Collector) RecordUnfollow() {
	c.unfollows.Inc()
}

// RecordFeedQuery はフィード集約のレイテンシを記録する。
func (c *Collector) RecordFeedQuery(duration time.Duration) {
	c.feedLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
