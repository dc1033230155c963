// Package app はコマンドライン引数の解釈と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/feedcredit/internal/admin"
	"github.com/hitoshi/feedcredit/internal/auth"
	"github.com/hitoshi/feedcredit/internal/config"
	"github.com/hitoshi/feedcredit/internal/database"
	"github.com/hitoshi/feedcredit/internal/handler"
	"github.com/hitoshi/feedcredit/internal/ledger"
	"github.com/hitoshi/feedcredit/internal/logger"
	"github.com/hitoshi/feedcredit/internal/metrics"
	"github.com/hitoshi/feedcredit/internal/middleware"
	"github.com/hitoshi/feedcredit/internal/moderation"
	"github.com/hitoshi/feedcredit/internal/posts"
	"github.com/hitoshi/feedcredit/internal/repository"
	"github.com/hitoshi/feedcredit/internal/savedfeed"
	"github.com/hitoshi/feedcredit/internal/security"
)

const (
	// maxTextRunes はタイトルと通報理由のサニタイズ後の最大文字数。
	maxTextRunes = 500
	// maxLinkLength は保存リンクの最大長。
	maxLinkLength = 2048
	// dbPingTimeout は起動時のDB疎通確認のタイムアウト。
	dbPingTimeout = 5 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んだ後、
// 設定されたログレベルでロガーを再設定する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}
}

// server はHTTPハンドラーと、停止時に解放するリソースをまとめる。
type server struct {
	handler http.Handler
	close   func()
}

// newServer はDB接続を受け取り、全依存関係をワイヤリングしたHTTPハンドラーを構築する。
func newServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*server, error) {
	// 1. メトリクス
	var recorder metrics.Recorder = metrics.Nop{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewDBStatsCollector(db, "feedcredit"),
		)
		recorder = metrics.NewCollector(reg)
		metricsHandler = metrics.Handler(reg)
	}

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	feedRepo := repository.NewPostgresFeedRepo(db)
	savedRepo := repository.NewPostgresSavedFeedRepo(db)

	// 3. セキュリティサービスの初期化
	urlGuard := security.NewURLGuard(maxLinkLength)
	sanitizer := security.NewPlainTextSanitizer(maxTextRunes)

	// 4. ドメインサービスの初期化
	tokens, err := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	ledgerService := ledger.NewService(userRepo, cfg.BonusLocation(), recorder)
	authService := auth.NewService(userRepo, ledgerService, auth.NewPasswordHasher(cfg.BcryptCost), tokens)
	savedService := savedfeed.NewService(userRepo, feedRepo, savedRepo, urlGuard, sanitizer, recorder)
	moderationService := moderation.NewService(feedRepo, sanitizer, recorder)
	adminService := admin.NewService(userRepo)
	postsService := posts.NewService(
		urlGuard.NewSafeClient(cfg.FetchTimeout),
		posts.Config{
			RedditBaseURL:      cfg.RedditBaseURL,
			Subreddit:          cfg.RedditSubreddit,
			TwitterBaseURL:     cfg.TwitterBaseURL,
			TwitterBearerToken: cfg.TwitterBearerToken,
			TwitterQuery:       cfg.TwitterQuery,
			Limit:              cfg.PostsLimit,
			MaxBodySize:        cfg.FetchMaxSize,
		},
		sanitizer, recorder, slog.Default(),
	)

	// 5. ルーターの構築
	// 設定値はreq/min単位なのでreq/secに変換する
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		SaveRate:        rate.Limit(float64(cfg.RateLimitSave) / 60.0),
		SaveBurst:       cfg.RateLimitSave,
		CleanupInterval: 5 * time.Minute,
	})

	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:      authService,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure(),
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rl,
		HSTS:        cfg.CookieSecure(),
		Logger:      slog.Default(),

		Metrics:        recorder,
		MetricsHandler: metricsHandler,
		HealthChecker:  db,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure(),
		},
		SavedFeedService:  savedService,
		ModerationService: moderationService,
		AdminService:      handler.NewAdminServiceAdapter(adminService, ledgerService),
		PostsService:      postsService,
	})

	return &server{handler: router, close: rl.Stop}, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. ハンドラーの構築
	srv, err := newServer(cfg, db, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer srv.close()

	// 3. HTTPサーバーの起動
	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
