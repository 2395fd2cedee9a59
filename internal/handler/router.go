package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/mdtanvirislamrakib/historivault/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     mw.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *mw.RateLimiter
	CSRFConfig        mw.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 遺物
	ArtifactService ArtifactServiceInterface
	Sanitizer       TextSanitizer
	ImageValidator  ImageURLValidator

	// 観測（いずれもnil可）
	Logger  *slog.Logger
	Metrics interface {
		ValidationRecorder
		LikeRecorder
		RecordHTTPStatus(statusCode int)
	}

	// ガード対象が揺れていたページの扱い
	GuardContactSupport bool
	GuardDocumentation  bool
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Session → Logging → Metrics → RateLimit(General) → CSRF
//
// サインイン必須のルートにはさらにGuardを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.NewRecoveryMiddleware())
	r.Use(mw.NewSecurityHeadersMiddleware())
	r.Use(mw.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(mw.NewSessionMiddleware(deps.SessionFinder))
	if deps.Logger != nil {
		r.Use(mw.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(mw.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(deps.RateLimiter.GeneralMiddleware())
	r.Use(mw.NewCSRFMiddleware(deps.CSRFConfig))

	var authMetrics ValidationRecorder
	var likeMetrics LikeRecorder
	if deps.Metrics != nil {
		authMetrics = deps.Metrics
		likeMetrics = deps.Metrics
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, authMetrics)
	artifactHandler := NewArtifactHandler(deps.ArtifactService, deps.Sanitizer, deps.ImageValidator, likeMetrics)
	pagesHandler := NewPagesHandler()

	guard := mw.NewGuardMiddleware()

	// --- 公開ルート ---

	r.Get("/", artifactHandler.Home)
	r.Get("/all-artifacts", artifactHandler.ListAll)
	r.Get("/about", pagesHandler.About)
	r.Get("/artifact-types", pagesHandler.ArtifactTypes)
	r.Get("/csrf-token", mw.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// ガード対象かどうかが設定で切り替わるページ
	if deps.GuardContactSupport {
		r.With(guard).Get("/contact-support", pagesHandler.ContactSupport)
	} else {
		r.Get("/contact-support", pagesHandler.ContactSupport)
	}
	if deps.GuardDocumentation {
		r.With(guard).Get("/browse-documentation", pagesHandler.BrowseDocumentation)
	} else {
		r.Get("/browse-documentation", pagesHandler.BrowseDocumentation)
	}

	// 認証フロー（GET /loginは未認証ガードのリダイレクト先となるページ）
	r.Get("/login", pagesHandler.Login)
	r.Post("/login", authHandler.SignIn)
	r.Post("/signup", authHandler.SignUp)
	r.Post("/logout", authHandler.SignOut)
	r.Route("/auth/federated", func(r chi.Router) {
		r.Get("/login", authHandler.FederatedLogin)
		r.Get("/callback", authHandler.FederatedCallback)
	})

	// --- サインイン必須のルート ---

	r.Group(func(r chi.Router) {
		r.Use(guard)

		r.Get("/me", authHandler.Me)
		r.Put("/me/profile", authHandler.UpdateProfile)

		r.Route("/artifacts/{id}", func(r chi.Router) {
			r.Get("/", artifactHandler.Detail)
			r.Post("/like", artifactHandler.Like)
		})

		r.Get("/add-artifacts", artifactHandler.AddForm)
		r.Get("/update-artifact/{id}", artifactHandler.UpdateForm)

		// 登録と更新には専用のレート制限を追加する
		r.With(deps.RateLimiter.SubmitMiddleware()).Post("/add-artifacts", artifactHandler.Add)
		r.With(deps.RateLimiter.SubmitMiddleware()).Put("/update-artifact/{id}", artifactHandler.Update)

		r.Get("/my-artifacts/{email}", artifactHandler.Mine)
		r.Get("/liked-artifacts/{email}", artifactHandler.Liked)
		r.Delete("/my-artifact/{id}", artifactHandler.Delete)
	})

	// ヘルスチェック
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
