// Package app はアプリケーションの初期化と起動を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/fpachisa/marathon-training-app/internal/assetstore"
	"github.com/fpachisa/marathon-training-app/internal/auth"
	"github.com/fpachisa/marathon-training-app/internal/catalog"
	"github.com/fpachisa/marathon-training-app/internal/config"
	"github.com/fpachisa/marathon-training-app/internal/database"
	"github.com/fpachisa/marathon-training-app/internal/handler"
	"github.com/fpachisa/marathon-training-app/internal/logger"
	"github.com/fpachisa/marathon-training-app/internal/metrics"
	"github.com/fpachisa/marathon-training-app/internal/middleware"
	"github.com/fpachisa/marathon-training-app/internal/notify"
	"github.com/fpachisa/marathon-training-app/internal/repository"
	"github.com/fpachisa/marathon-training-app/internal/security"
	"github.com/fpachisa/marathon-training-app/internal/submission"
	"github.com/fpachisa/marathon-training-app/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

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
	case CommandSeed:
		return runSeed(cfg)
	case CommandServe:
		return runServe(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	taskRepo := repository.NewPostgresTaskTemplateRepo(db)
	submissionRepo := repository.NewPostgresSubmissionRepo(db)

	// 3. メトリクスとセキュリティサービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	sanitizer := security.NewFeedbackSanitizer()

	// 4. 証跡ストアの初期化
	var store assetstore.EvidenceStore
	var uploadsDir string
	switch cfg.AssetStore {
	case config.AssetStoreS3:
		s3Client, clientErr := assetstore.NewS3ClientFromEnv(context.Background())
		if clientErr != nil {
			return fmt.Errorf("failed to create S3 client: %w", clientErr)
		}
		store = assetstore.NewS3Store(s3Client, cfg.S3Bucket, cfg.S3KeyPrefix, cfg.S3PublicURL)
	default:
		localStore, storeErr := assetstore.NewLocalStore(cfg.UploadDir)
		if storeErr != nil {
			return fmt.Errorf("failed to create local store: %w", storeErr)
		}
		store = localStore
		uploadsDir = localStore.Dir()
	}

	// 5. 通知の初期化（SMTP未設定の場合は無効化）
	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.SMTPHost != "" {
		notifier = notify.NewSMTPNotifier(
			cfg.SMTPHost, cfg.SMTPPort,
			cfg.SMTPUser, cfg.SMTPPassword,
			cfg.NotifyFrom, cfg.NotifyAdminTo,
		)
	} else {
		slog.Info("SMTP is not configured, notifications disabled")
	}

	// 6. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	catalogService := catalog.NewService(taskRepo)
	submissionService := submission.NewService(
		submissionRepo, taskRepo, userRepo,
		sanitizer, notifier, collector,
	)

	// 7. レート制限の構成（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.UploadRate = rate.Limit(float64(cfg.RateLimitUpload) / 60.0)
	rateLimiterCfg.UploadBurst = cfg.RateLimitUpload
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		UserFinder:        userRepo,
		AdminChecker:      cfg,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		Collector:         collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		SubmissionService: submissionService,
		EvidenceStore:     store,
		MaxUploadSize:     cfg.UploadMaxSize,

		AdminService:  submissionService,
		CatalogSeeder: catalogService,

		HealthChecker:   db,
		MetricsGatherer: registry,
		UploadsDir:      uploadsDir,
	}
	router := handler.NewRouter(deps)

	// 9. 期限切れセッションのクリーンアップジョブをバックグラウンドで起動
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, slog.Default())
	if err := cleanupJob.Run(jobCtx); err != nil {
		slog.Error("initial cleanup run failed", slog.String("error", err.Error()))
	}
	cleanupJob.Start(jobCtx)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
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

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed は標準タスクカタログのシード投入を実行する。
// カタログが空の場合のみ投入する（冪等）。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	taskRepo := repository.NewPostgresTaskTemplateRepo(db)
	catalogService := catalog.NewService(taskRepo)

	created, err := catalogService.SeedDefaults(context.Background())
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed", slog.Int("created", created))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
