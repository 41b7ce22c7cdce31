package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/taskly/internal/auth"
	"github.com/hitoshi/taskly/internal/middleware"
	"github.com/hitoshi/taskly/internal/model"
)

// maxProfilePicBytes はプロフィール画像アップロードの上限サイズ。
const maxProfilePicBytes = 5 << 20 // 5MB

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password string) (*auth.AuthResult, error)
	CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// AuthHandler は登録・ログイン・プロフィール関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	uploadDir string
}

// NewAuthHandler はAuthHandlerを生成する。
// uploadDirはプロフィール画像の保存先ディレクトリ。
func NewAuthHandler(service AuthServiceInterface, uploadDir string) *AuthHandler {
	return &AuthHandler{
		service:   service,
		uploadDir: uploadDir,
	}
}

// registerRequest は登録リクエストのボディ（JSON形式の場合）。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// changePasswordRequest はパスワード変更リクエストのボディ。
type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// authResponse は登録・ログインのAPIレスポンス。
type authResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// Register は新規ユーザー登録を処理する。
// JSONボディと、プロフィール画像を含むmultipart/form-dataの両方を受け付ける。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxProfilePicBytes); err != nil {
			writeInvalidBody(w)
			return
		}
		in.Name = r.FormValue("name")
		in.Email = r.FormValue("email")
		in.Password = r.FormValue("password")

		if file, header, err := r.FormFile("profilePic"); err == nil {
			defer file.Close()
			filename, saveErr := h.saveProfilePic(file, header)
			if saveErr != nil {
				slog.Error("failed to save profile picture", slog.String("error", saveErr.Error()))
				handleServiceError(w, saveErr)
				return
			}
			in.ProfilePic = filename
		}
	} else {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInvalidBody(w)
			return
		}
		in.Name = req.Name
		in.Email = req.Email
		in.Password = req.Password
	}

	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: result.Token, User: result.User})
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Email and password are required"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: result.Token, User: result.User})
}

// Me は認証済みユーザーの公開プロフィールを返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.PublicUser{"user": *user})
}

// ChangePassword はパスワード変更を処理する。
// PATCH /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Current password and new password are required"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// saveProfilePic はアップロードされた画像をuploadDirに保存し、生成したファイル名を返す。
// ファイル名はUUIDで生成し、元ファイルの拡張子のみ引き継ぐ。
func (h *AuthHandler) saveProfilePic(file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	filename := uuid.NewString() + ext

	dst, err := os.Create(filepath.Join(h.uploadDir, filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, maxProfilePicBytes)); err != nil {
		return "", err
	}

	return filename, nil
}
