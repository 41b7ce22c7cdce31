package middleware

import "net/http"

// NewSecurityHeadersMiddleware はすべてのレスポンスにセキュリティヘッダーを
// 付与するミドルウェアを返す。JSON APIとプロフィール画像配信の両方に適用する。
// 画像配信ではnosniffによりContent-Typeの偽装解釈を防ぐ。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			// タスク管理UIは同一オリジンのSPAのみを想定するため埋め込みは全面禁止
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			next.ServeHTTP(w, r)
		})
	}
}
