// Package auth は認証（トークン発行・検証、登録、ログイン）のドメインロジックを提供する。
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken はトークンの署名または形式が不正な場合に返す。
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken はトークンの有効期限が切れている場合に返す。
	ErrExpiredToken = errors.New("token has expired")
	// ErrNoSubject はトークンのペイロードにsubjectが含まれない場合に返す。
	ErrNoSubject = errors.New("token has no subject")
)

// TokenManager はHS256署名のセッショントークンを発行・検証する。
// 署名シークレットは起動時の設定から注入し、アンビエントには読まない。
type TokenManager struct {
	secret []byte
	expiry time.Duration
}

// NewTokenManager はTokenManagerを生成する。
// expiryが0の場合は24時間を使用する。
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Issue は指定ユーザーのトークンを発行する。
// ペイロードはsubject=userIDとissuedAtのみで、有効期限は発行時刻+expiry。
func (m *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Resolve はトークンを検証してsubjectのuserIDを返す。
// 失敗理由は ErrInvalidToken / ErrExpiredToken / ErrNoSubject で区別する。
func (m *TokenManager) Resolve(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}

	return claims.Subject, nil
}
