// Package posts は外部サービス（Reddit/Twitter）から最新の投稿を取得し、
// 保存・通報の対象となる共通形式に正規化する。
package posts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedcredit/internal/metrics"
	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/security"
)

// 投稿ソース名
const (
	SourceReddit  = "reddit"
	SourceTwitter = "twitter"
)

const (
	defaultRedditBase   = "https://www.reddit.com"
	defaultTwitterBase  = "https://api.twitter.com"
	defaultSubreddit    = "javascript"
	defaultTwitterQuery = "javascript"
	defaultLimit        = 10
	defaultMaxBodySize  = 2 << 20
	userAgent           = "feedcredit/1.0 (+https://github.com/hitoshi/feedcredit)"
)

// errBodyTooLarge はレスポンスボディがMaxBodySizeを超えた場合のエラー。
var errBodyTooLarge = errors.New("response body exceeds max size")

// Post は外部投稿1件。PostIDはソース内で一意な識別子にソース名を前置したもの。
type Post struct {
	PostID      string     `json:"postId"`
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Config は投稿取得の設定。ゼロ値のフィールドは既定値で補う。
type Config struct {
	RedditBaseURL      string
	Subreddit          string
	TwitterBaseURL     string
	TwitterBearerToken string
	TwitterQuery       string
	Limit              int
	MaxBodySize        int64
}

func (c Config) withDefaults() Config {
	if c.RedditBaseURL == "" {
		c.RedditBaseURL = defaultRedditBase
	}
	if c.Subreddit == "" {
		c.Subreddit = defaultSubreddit
	}
	if c.TwitterBaseURL == "" {
		c.TwitterBaseURL = defaultTwitterBase
	}
	if c.TwitterQuery == "" {
		c.TwitterQuery = defaultTwitterQuery
	}
	if c.Limit <= 0 {
		c.Limit = defaultLimit
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	return c
}

// Service は外部投稿の取得を行う。
type Service struct {
	httpClient *http.Client
	cfg        Config
	sanitizer  security.TextSanitizer
	metrics    metrics.Recorder
	logger     *slog.Logger
}

// NewService はServiceを生成する。
// httpClientには本番ではsecurity.URLGuard.NewSafeClientの結果を渡す。
func NewService(
	httpClient *http.Client,
	cfg Config,
	sanitizer security.TextSanitizer,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		httpClient: httpClient,
		cfg:        cfg.withDefaults(),
		sanitizer:  sanitizer,
		metrics:    recorder,
		logger:     logger,
	}
}

// get はGETリクエストを実行し、200以外とMaxBodySize超過をエラーとして本文を返す。
// 超過は途中で切り詰めずに拒否する。
func (s *Service) get(ctx context.Context, source, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("外部APIの呼び出しに失敗しました",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("外部APIがエラーステータスを返しました",
			slog.String("source", source),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%s がステータス %d を返しました", source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if int64(len(body)) > s.cfg.MaxBodySize {
		s.logger.Error("外部APIのレスポンスが大きすぎます",
			slog.String("source", source),
			slog.Int64("max_body_size", s.cfg.MaxBodySize),
		)
		return nil, fmt.Errorf("%s: %w", source, errBodyTooLarge)
	}
	return body, nil
}

// fetch は取得処理を実行し、所要時間と成否をメトリクスに記録する。
// 失敗は SOURCE_UNAVAILABLE に変換する。
func (s *Service) fetch(source string, fn func() ([]Post, error)) ([]Post, error) {
	start := time.Now()
	posts, err := fn()
	s.metrics.RecordUpstreamFetch(source, err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("投稿の取得に失敗しました",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSourceUnavailableError(source)
	}

	s.logger.Info("投稿を取得しました",
		slog.String("source", source),
		slog.Int("count", len(posts)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return posts, nil
}
