package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskly/internal/model"
	"github.com/hitoshi/taskly/internal/password"
	"github.com/hitoshi/taskly/internal/repository"
)

// TextSanitizer はユーザー入力の自由テキストをサニタイズするインターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder は認証操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordRegistration()
	RecordLogin()
}

// Service は登録・ログイン・パスワード変更のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	hasher    *password.Hasher
	tokens    *TokenManager
	sanitizer TextSanitizer
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	hasher *password.Hasher,
	tokens *TokenManager,
	sanitizer TextSanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// RegisterInput は登録リクエストの入力。
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	ProfilePic string // アップロード済み画像のファイル名参照（任意）
}

// AuthResult はトークンと公開プロフィールをまとめた認証結果。
type AuthResult struct {
	Token string
	User  model.PublicUser
}

// Register は新規ユーザーを登録し、即座にトークンを発行する。
// メールアドレスは小文字に正規化して保存する。登録済みメールはEMAIL_IN_USE、
// パスワードポリシー違反は失敗ルールを列挙したエラーを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(s.sanitizer.Sanitize(in.Name))
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" {
		return nil, model.NewValidationError("Name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewValidationError("A valid email address is required")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailInUseError()
	}

	if err := password.Validate(in.Password, name); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		ProfilePic:   in.ProfilePic,
		Status:       model.DefaultUserStatus,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("user registered", slog.String("user_id", user.ID))

	return &AuthResult{Token: token, User: user.Public()}, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// メール未登録とパスワード不一致は同一の汎用メッセージに畳み込む。
func (s *Service) Login(ctx context.Context, email, plainPassword string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLogin()
	}
	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &AuthResult{Token: token, User: user.Public()}, nil
}

// CurrentUser は認証済みユーザーの公開プロフィールを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	pub := user.Public()
	return &pub, nil
}

// ChangePassword は現在のパスワードを検証したうえで新しいパスワードに更新する。
// 新しいパスワードはユーザー名を所有者名としてポリシー検証する。
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		return model.NewValidationError("Current password is incorrect")
	}

	if err := password.Validate(newPassword, user.Name); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	slog.Info("password changed", slog.String("user_id", userID))

	return nil
}
