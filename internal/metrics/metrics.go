// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// クレジット加算理由のラベル値
const (
	ReasonSaveAward  = "save_award"
	ReasonLoginBonus = "login_bonus"
	ReasonAdminSet   = "admin_set"
	ReasonAdjust     = "adjust"
)

// Recorder はメトリクス記録のインターフェース。
// サービス層とHTTPミドルウェアから利用する。
type Recorder interface {
	RecordCreditsAwarded(reason string, amount int)
	RecordFeedSaved(duplicate bool)
	RecordReport(action string)
	RecordHTTPStatus(statusCode int)
	RecordUpstreamFetch(source string, success bool, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	creditsAwarded *prometheus.CounterVec
	feedSaves      *prometheus.CounterVec
	reports        *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	upstreamFetch  *prometheus.CounterVec
	upstreamTime   *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		creditsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedcredit_credits_awarded_total",
			Help: "理由別の加算クレジット合計",
		}, []string{"reason"}),
		feedSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedcredit_feed_saves_total",
			Help: "フィード保存リクエスト数（重複保存を含む）",
		}, []string{"result"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedcredit_reports_total",
			Help: "通報と通報対応の件数",
		}, []string{"action"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedcredit_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		upstreamFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedcredit_upstream_fetch_total",
			Help: "外部投稿ソースへのリクエスト数",
		}, []string{"source", "result"}),
		upstreamTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedcredit_upstream_fetch_seconds",
			Help:    "外部投稿ソースのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
	}

	reg.MustRegister(
		c.creditsAwarded,
		c.feedSaves,
		c.reports,
		c.httpStatus,
		c.upstreamFetch,
		c.upstreamTime,
	)

	return c
}

// RecordCreditsAwarded は加算されたクレジットを記録する。負の値は記録しない。
func (c *Collector) RecordCreditsAwarded(reason string, amount int) {
	if amount <= 0 {
		return
	}
	c.creditsAwarded.WithLabelValues(reason).Add(float64(amount))
}

// RecordFeedSaved はフィード保存を記録する。
func (c *Collector) RecordFeedSaved(duplicate bool) {
	result := "saved"
	if duplicate {
		result = "duplicate"
	}
	c.feedSaves.WithLabelValues(result).Inc()
}

// RecordReport は通報（action="report"）と通報対応を記録する。
func (c *Collector) RecordReport(action string) {
	c.reports.WithLabelValues(action).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamFetch は外部投稿ソースへのリクエスト結果とレイテンシを記録する。
func (c *Collector) RecordUpstreamFetch(source string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.upstreamFetch.WithLabelValues(source, result).Inc()
	c.upstreamTime.WithLabelValues(source).Observe(duration.Seconds())
}

// Nop は何も記録しないRecorder。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordCreditsAwarded(string, int)                {}
func (Nop) RecordFeedSaved(bool)                            {}
func (Nop) RecordReport(string)                             {}
func (Nop) RecordHTTPStatus(int)                            {}
func (Nop) RecordUpstreamFetch(string, bool, time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
