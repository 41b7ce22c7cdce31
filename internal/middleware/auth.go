// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/taskly/internal/auth"
	"github.com/hitoshi/taskly/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenResolver はBearerトークンの検証に必要なインターフェース。
// auth.TokenManagerの部分集合として定義する。
type TokenResolver interface {
	Resolve(token string) (string, error)
}

// UserFinder はトークン所有者の存在確認に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証する
// ミドルウェアを返す。トークンの所有者が現在も存在することを確認したうえで、
// 認証済みユーザーIDをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを統一エラーフォーマットで返す。
func NewAuthMiddleware(tokens TokenResolver, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. AuthorizationヘッダーからBearerトークンを取得
			header := r.Header.Get("Authorization")
			if header == "" {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthenticatedError("No authentication token provided"))
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthenticatedError("Invalid token format"))
				return
			}

			// 2. トークンの署名と有効期限を検証
			userID, err := tokens.Resolve(token)
			if err != nil {
				reason := "Invalid token"
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					reason = "Token expired"
				case errors.Is(err, auth.ErrNoSubject):
					// subjectを欠くトークンは所有者を特定できない
					reason = "User not found"
				}
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthenticatedError(reason))
				return
			}

			// 3. トークン発行後に削除されたユーザーを弾く
			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				WriteInternalServerError(w, "")
				return
			}
			if user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthenticatedError("User not found"))
				return
			}

			// 4. 認証済みユーザーIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
