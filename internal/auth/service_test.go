package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskly/internal/model"
	"github.com/hitoshi/taskly/internal/password"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.User, error)
	createFn             func(ctx context.Context, user *model.User) error
	updatePasswordHashFn func(ctx context.Context, id, hash string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if m.updatePasswordHashFn != nil {
		return m.updatePasswordHashFn(ctx, id, hash)
	}
	return nil
}
func (m *mockUserRepo) FindRefsByIDs(ctx context.Context, ids []string) (map[string]model.UserRef, error) {
	return map[string]model.UserRef{}, nil
}

// noopSanitizer は入力をそのまま返すサニタイザ。
type noopSanitizer struct{}

func (noopSanitizer) Sanitize(raw string) string { return raw }

func newTestService(repo *mockUserRepo) *Service {
	hasher := password.NewHasher(bcrypt.MinCost)
	tokens := NewTokenManager("test-secret", time.Hour)
	return NewService(repo, hasher, tokens, noopSanitizer{}, nil)
}

// --- テスト ---

// TestService_Register_Success は登録成功時の振る舞いを検証する。
func TestService_Register_Success(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "Alice@Example.COM",
		Password: "Str0ng!Pass",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if created.Email != "alice@example.com" {
		t.Errorf("Email = %q, want lowercased %q", created.Email, "alice@example.com")
	}
	if created.Status != model.DefaultUserStatus {
		t.Errorf("Status = %q, want %q", created.Status, model.DefaultUserStatus)
	}
	if created.PasswordHash == "Str0ng!Pass" {
		t.Error("password should be stored hashed")
	}
	if result.Token == "" {
		t.Error("expected a token to be issued")
	}
	if result.User.ID != created.ID {
		t.Errorf("User.ID = %q, want %q", result.User.ID, created.ID)
	}
}

// TestService_Register_DuplicateEmail は登録済みメールの拒否を検証する。
func TestService_Register_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing", Email: email}, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "Str0ng!Pass",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailInUse {
		t.Errorf("err = %v, want EMAIL_IN_USE", err)
	}
}

// TestService_Register_WeakPassword はポリシー違反パスワードの拒否を検証する。
func TestService_Register_WeakPassword(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "weak",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePasswordPolicy {
		t.Errorf("err = %v, want PASSWORD_POLICY_VIOLATION", err)
	}
}

// TestService_Register_InvalidEmail は不正なメールアドレスの拒否を検証する。
func TestService_Register_InvalidEmail(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "not-an-email",
		Password: "Str0ng!Pass",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("err = %v, want VALIDATION_FAILED", err)
	}
}

// TestService_Login_Success はログイン成功時にトークンが発行されることを検証する。
func TestService_Login_Success(t *testing.T) {
	hasher := password.NewHasher(bcrypt.MinCost)
	hash, _ := hasher.Hash("Str0ng!Pass")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newTestService(repo)

	result, err := svc.Login(context.Background(), "alice@example.com", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token to be issued")
	}
	if result.User.ID != "user-1" {
		t.Errorf("User.ID = %q, want %q", result.User.ID, "user-1")
	}
}

// TestService_Login_GenericFailure はメール未登録とパスワード不一致が
// 同一の汎用エラーに畳み込まれることを検証する。
func TestService_Login_GenericFailure(t *testing.T) {
	hasher := password.NewHasher(bcrypt.MinCost)
	hash, _ := hasher.Hash("Str0ng!Pass")

	tests := []struct {
		name string
		repo *mockUserRepo
	}{
		{
			name: "unknown email",
			repo: &mockUserRepo{},
		},
		{
			name: "wrong password",
			repo: &mockUserRepo{
				findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
					return &model.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.repo)

			_, err := svc.Login(context.Background(), "alice@example.com", "Wrong1!pass")

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
			}
			if apiErr.Message != "Invalid email or password" {
				t.Errorf("Message = %q, want generic message", apiErr.Message)
			}
		})
	}
}

// TestService_ChangePassword_WrongCurrent は現在のパスワード不一致の拒否を検証する。
func TestService_ChangePassword_WrongCurrent(t *testing.T) {
	hasher := password.NewHasher(bcrypt.MinCost)
	hash, _ := hasher.Hash("Current1!pw")
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Alice", PasswordHash: hash}, nil
		},
	}
	svc := newTestService(repo)

	err := svc.ChangePassword(context.Background(), "user-1", "Wrong1!pass", "NewStr0ng!pw")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("err = %v, want VALIDATION_FAILED", err)
	}
}

// TestService_ChangePassword_Success はパスワード変更成功時にハッシュが更新されることを検証する。
func TestService_ChangePassword_Success(t *testing.T) {
	hasher := password.NewHasher(bcrypt.MinCost)
	hash, _ := hasher.Hash("Current1!pw")
	updated := false
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Alice", PasswordHash: hash}, nil
		},
		updatePasswordHashFn: func(ctx context.Context, id, newHash string) error {
			updated = true
			if newHash == "NewStr0ng!pw" {
				t.Error("new password should be stored hashed")
			}
			return nil
		},
	}
	svc := newTestService(repo)

	if err := svc.ChangePassword(context.Background(), "user-1", "Current1!pw", "NewStr0ng!pw"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if !updated {
		t.Error("expected UpdatePasswordHash to be called")
	}
}
