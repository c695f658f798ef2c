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

	"github.com/IkonicR/clanova-manager/internal/auth"
	"github.com/IkonicR/clanova-manager/internal/clanstats"
	"github.com/IkonicR/clanova-manager/internal/clash"
	"github.com/IkonicR/clanova-manager/internal/config"
	"github.com/IkonicR/clanova-manager/internal/database"
	"github.com/IkonicR/clanova-manager/internal/handler"
	"github.com/IkonicR/clanova-manager/internal/logger"
	"github.com/IkonicR/clanova-manager/internal/metrics"
	"github.com/IkonicR/clanova-manager/internal/middleware"
	"github.com/IkonicR/clanova-manager/internal/repository"
	"github.com/IkonicR/clanova-manager/internal/security"
)

// セッションキャッシュのTTL。サインアウトイベントで即時無効化されるため、
// ここは問い合わせ削減のための短い上限でよい。
const sessionCacheTTL = time.Minute

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
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 上流ベースURLの事前検証。設定ミスはDB接続前に弾く。
	guard := security.NewOutboundGuard()
	if err := guard.ValidateURL(cfg.ClashAPIBaseURL); err != nil {
		return fmt.Errorf("invalid upstream base URL: %w", err)
	}

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
	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresPlayerProfileRepo(db)
	membershipRepo := repository.NewPostgresClanMembershipRepo(db)

	// 3. セッションキャッシュと通知チャンネル
	sessionCache := auth.NewSessionCache(sessionRepo, sessionCacheTTL)
	defer sessionCache.Close()

	notifier := auth.NewNotifier()

	// 4. メトリクスの初期化
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	unsubscribe := notifier.Subscribe(func(ev auth.SessionEvent) {
		collector.RecordSessionEvent(string(ev.Type))
		if ev.Type == auth.EventSignedUp && ev.Outcome != "" {
			collector.RecordSignUpOutcome(ev.Outcome)
		}
		if ev.Type == auth.EventSignedOut && ev.SessionID != "" {
			sessionCache.Invalidate(ev.SessionID)
		}
	})
	defer unsubscribe()

	// 5. 上流APIクライアント（SSRF対策済みHTTPクライアント経由）
	clashClient := clash.NewClient(
		guard.NewSafeClient(cfg.UpstreamTimeout, cfg.UpstreamMaxSize),
		slog.Default(),
		clash.ClientConfig{
			BaseURL:     cfg.ClashAPIBaseURL,
			Token:       cfg.ClashAPIToken,
			MaxBodySize: cfg.UpstreamMaxSize,
		},
	)

	// 6. ドメインサービスの初期化
	authService := auth.NewService(
		clashClient, userRepo, sessionCache, profileRepo, membershipRepo,
		notifier, slog.Default(),
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	statsService := clanstats.NewService(
		clashClient, security.NewDescriptionSanitizer(), slog.Default(),
	)

	// 7. レート制限（設定はreq/min単位、リミッターはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitLookup > 0 {
		rateLimiterCfg.LookupRate = rate.Limit(float64(cfg.RateLimitLookup) / 60.0)
		rateLimiterCfg.LookupBurst = cfg.RateLimitLookup
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionCache,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProxyHandler: handler.NewProxyHandler(clashClient, collector, slog.Default()),
		ClanStats:    statsService,

		MetricsHandler: metrics.Handler(reg),
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
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
