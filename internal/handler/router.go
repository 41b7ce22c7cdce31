package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/taskly/internal/metrics"
	"github.com/hitoshi/taskly/internal/middleware"
)

// Pinger はヘルスチェックに必要なインターフェース。sql.DBの部分集合。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenResolver     middleware.TokenResolver
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// サービス
	AuthService  AuthServiceInterface
	GroupService GroupServiceInterface
	TaskService  TaskServiceInterface

	// その他
	DB                Pinger
	UploadDir         string
	ExposeErrorDetail bool
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging(+Metrics)
//
// 登録・ログインは認証チェーンの外に置き、IPベースのレート制限のみを適用する。
// それ以外の/api/*はBearer認証とユーザーベースのレート制限を通す。
func NewRouter(deps *RouterDeps) http.Handler {
	if deps.ExposeErrorDetail {
		EnableErrorDetail()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.UploadDir)
	groupHandler := NewGroupHandler(deps.GroupService)
	taskHandler := NewTaskHandler(deps.TaskService)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler(deps.DB))
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// プロフィール画像の静的配信
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(deps.UploadDir))))

	// 登録・ログイン（ブルートフォース対策のIPベースレート制限）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth(Bearer) → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenResolver, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール
		r.Get("/api/auth/me", authHandler.Me)
		r.Patch("/api/auth/change-password", authHandler.ChangePassword)

		// グループ管理
		r.Route("/api/groups", func(r chi.Router) {
			r.Post("/", groupHandler.Create)
			r.Get("/", groupHandler.ListCreated)
			r.Get("/my-groups", groupHandler.MyGroups)

			r.Route("/{groupID}", func(r chi.Router) {
				r.Put("/", groupHandler.Rename)
				r.Delete("/", groupHandler.Delete)
				r.Post("/add-user", groupHandler.AddMember)
				r.Get("/group-members", groupHandler.ListMembers)

				r.Route("/users/{userID}", func(r chi.Router) {
					r.Delete("/", groupHandler.RemoveMember)
					r.Patch("/", groupHandler.UpdateMember)
				})
			})
		})

		// タスク管理
		r.Route("/api/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.Create)

			// 静的セグメントはパスパラメータより優先してマッチする
			r.Get("/assigned/me", taskHandler.ListAssignedToMe)

			// GETの:idはグループID、PATCH/DELETEの:idはタスクIDを指す
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.ListByGroup)
				r.Get("/user/{userID}", taskHandler.ListByUserInGroup)
				r.Patch("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
			})
		})
	})

	return r
}

// healthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
