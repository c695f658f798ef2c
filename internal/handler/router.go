package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IkonicR/clanova-manager/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロキシ関数
	ProxyHandler *ProxyHandler

	// クラン統計
	ClanStats ClanStatsInterface

	// メトリクス公開エンドポイント（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ルートは3つの面に分かれる:
//
//   - /auth/*       設定オリジンのCORS、セッション発行・破棄
//   - /functions/*  ワイルドカードCORS + IPレート制限（認証不要のプロキシ関数）
//   - /api/*        設定オリジンのCORS + Session → RateLimit(General)
//
// /health は常に200を返す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	clanHandler := NewClanHandler(deps.ClanStats, nil)

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- プロキシ関数（認証不要、ワイルドカードCORS、IPレート制限） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewProxyCORSMiddleware())
		r.Use(deps.RateLimiter.ProxyMiddleware())

		r.Post("/functions/getplayerdata", deps.ProxyHandler.GetPlayerData)
		r.Options("/functions/getplayerdata", deps.ProxyHandler.Preflight)
		r.Post("/functions/getclashclandata", deps.ProxyHandler.GetClanData)
		r.Options("/functions/getclashclandata", deps.ProxyHandler.Preflight)
	})

	// --- 認証ルートとAPIルート（設定オリジンのCORS） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// 認証が必要なルート: Session → RateLimit(General) → RateLimit(Lookup)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/api/profile", authHandler.Profile)
			r.Delete("/api/account", authHandler.DeleteAccount)

			r.Route("/api/clans/{tag}", func(r chi.Router) {
				// クラン照会は上流APIを叩くため専用レート制限を重ねる
				r.With(deps.RateLimiter.LookupMiddleware()).Get("/", clanHandler.Overview)
				r.With(deps.RateLimiter.LookupMiddleware()).Get("/members", clanHandler.Members)
				r.With(deps.RateLimiter.LookupMiddleware()).Get("/wars", clanHandler.Wars)
			})
		})
	})

	return r
}
