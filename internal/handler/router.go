package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fpachisa/marathon-training-app/internal/assetstore"
	"github.com/fpachisa/marathon-training-app/internal/metrics"
	"github.com/fpachisa/marathon-training-app/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	UserFinder        middleware.UserFinder
	AdminChecker      AdminChecker
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// タスクと提出
	SubmissionService SubmissionServiceInterface
	EvidenceStore     assetstore.EvidenceStore
	MaxUploadSize     int64

	// 管理者
	AdminService  AdminServiceInterface
	CatalogSeeder CatalogSeederInterface

	// 運用
	HealthChecker   HealthChecker
	MetricsGatherer prometheus.Gatherer

	// ローカルストア使用時の証跡配信ディレクトリ。空ならば/uploads/*を配信しない
	UploadsDir string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Session → RateLimit(General)
//
// 認証ルート（/auth/*）と運用エンドポイント（/health, /metrics）は
// セッションミドルウェアの外に配置する。
// 管理者ルート（/api/admin/*）にはさらにAdminミドルウェアを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService, deps.AdminChecker, deps.AuthConfig)
	taskHandler := NewTaskHandler(deps.SubmissionService, deps.EvidenceStore, deps.Collector, deps.MaxUploadSize)
	adminHandler := NewAdminHandler(deps.AdminService, deps.CatalogSeeder)

	// --- 認証不要のルート ---

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプ
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// ローカルストア使用時のみ証跡画像を静的配信する
	if deps.UploadsDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadsDir)))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// タスク一覧と提出
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)

			// POST /api/tasks/{taskID}/complete - 証跡アップロード（専用レート制限を追加）
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/{taskID}/complete", taskHandler.CompleteTask)
		})

		// 管理者向けAPI
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware(deps.UserFinder, deps.AdminChecker))

			r.Get("/submissions", adminHandler.ListSubmissions)
			r.Post("/submissions/review", adminHandler.ReviewSubmission)
			r.Post("/tasks/seed", adminHandler.SeedTasks)
		})
	})

	return r
}
