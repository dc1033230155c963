package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/feedcredit/internal/metrics"
	"github.com/hitoshi/feedcredit/internal/middleware"
	"github.com/hitoshi/feedcredit/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier      middleware.TokenVerifier
	CORSAllowedOrigins []string
	CSRFConfig         middleware.CSRFConfig
	RateLimiter        *middleware.RateLimiter
	HSTS               bool
	Logger             *slog.Logger

	// 運用
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	HealthChecker  repository.Pinger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 保存フィード
	SavedFeedService SavedFeedServiceInterface

	// 通報
	ModerationService ModerationServiceInterface

	// 管理者
	AdminService AdminServiceInterface

	// 外部投稿
	PostsService PostsServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → RealIP → Metrics → Logging → CORS
//
// 公開APIには RateLimit(General, IP単位) を、認証が必要なルートには
// Auth → RateLimit(General, ユーザー単位) → CSRF を、管理者ルートにはさらに Admin を適用する。
// /health と /metrics はレート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewMetricsMiddleware(recorder))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	savedHandler := NewSavedFeedHandler(deps.SavedFeedService)
	reportHandler := NewReportHandler(deps.ModerationService)
	adminHandler := NewAdminHandler(deps.AdminService)
	postsHandler := NewPostsHandler(deps.PostsService)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 未認証のためクライアントIPで制限される
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
		r.Post("/api/auth/logout", authHandler.Logout)

		r.Get("/api/posts/reddit", postsHandler.Reddit)
		r.Get("/api/posts/twitter", postsHandler.Twitter)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General) → CSRF
	// Authの後に置くことで同一IPの別ユーザーがバケットを共有しない
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/api/auth/me", authHandler.Me)
		r.Patch("/api/auth/update", authHandler.UpdateProfile)

		r.Route("/api/feed", func(r chi.Router) {
			// POST /api/feed/save - 保存専用レート制限を追加
			r.With(deps.RateLimiter.SaveMiddleware()).Post("/save", savedHandler.Save)
			r.Get("/saved", savedHandler.List)
			r.Get("/saved/{postId}", savedHandler.Get)
			r.Delete("/saved/{postId}", savedHandler.Unsave)
			r.Post("/share/{feedId}", savedHandler.Share)
		})

		r.Post("/api/report/{feedId}", reportHandler.Report)
		r.Get("/api/admin/credits", adminHandler.MyCredits)

		// --- 管理者のみのルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware())

			r.Get("/api/report/all", reportHandler.ListReported)
			r.Delete("/api/report/delete/{feedId}", reportHandler.Delete)
			r.Put("/api/report/ignore/{feedId}", reportHandler.Ignore)

			r.Get("/api/admin/users", adminHandler.ListUsers)
			r.Put("/api/admin/user/credits/{userId}", adminHandler.SetCredits)
			r.Patch("/api/admin/user/credits/{userId}", adminHandler.AdjustCredits)
			r.Delete("/api/admin/user/{userId}", adminHandler.DeleteUser)
		})
	})

	return r
}
