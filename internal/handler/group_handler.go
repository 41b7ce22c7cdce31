package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskly/internal/group"
	"github.com/hitoshi/taskly/internal/middleware"
	"github.com/hitoshi/taskly/internal/model"
)

// GroupServiceInterface はグループハンドラーが必要とするサービスインターフェース。
type GroupServiceInterface interface {
	Create(ctx context.Context, requesterID, name string) (*model.GroupView, error)
	Rename(ctx context.Context, requesterID, groupID, name string) (*model.GroupView, error)
	Delete(ctx context.Context, requesterID, groupID string) error
	AddMember(ctx context.Context, requesterID, groupID, email, role string) (*model.GroupView, error)
	RemoveMember(ctx context.Context, requesterID, groupID, userID string) (*model.GroupView, error)
	UpdateMember(ctx context.Context, requesterID, groupID, userID string, role, status *string) (*model.GroupView, error)
	ListMembers(ctx context.Context, groupID string) ([]model.MemberView, error)
	ListCreated(ctx context.Context, requesterID string) ([]model.GroupView, error)
	ListMyGroups(ctx context.Context, requesterID string) (*group.MyGroups, error)
}

// GroupHandler はグループ管理のHTTPハンドラー。
type GroupHandler struct {
	service GroupServiceInterface
}

// NewGroupHandler はGroupHandlerを生成する。
func NewGroupHandler(service GroupServiceInterface) *GroupHandler {
	return &GroupHandler{service: service}
}

// groupNameRequest はグループ作成・リネームリクエストのボディ。
type groupNameRequest struct {
	Name string `json:"name"`
}

// addMemberRequest はメンバー追加リクエストのボディ。roleは省略可能。
type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// updateMemberRequest はメンバー更新リクエストのボディ。nilのフィールドは変更しない。
type updateMemberRequest struct {
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

// Create はグループ作成を処理する。
// POST /api/groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req groupNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	view, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// ListCreated はリクエスタが作成したグループの一覧を返す。
// GET /api/groups
func (h *GroupHandler) ListCreated(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	views, err := h.service.ListCreated(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// MyGroups は作成したグループと所属グループの一覧を返す。
// GET /api/groups/my-groups
func (h *GroupHandler) MyGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	result, err := h.service.ListMyGroups(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Rename はグループ名の変更を処理する。
// PUT /api/groups/:groupId
func (h *GroupHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	groupID := chi.URLParam(r, "groupID")

	var req groupNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	view, err := h.service.Rename(r.Context(), userID, groupID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Delete はグループと所属タスクの削除を処理する。
// DELETE /api/groups/:groupId
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	groupID := chi.URLParam(r, "groupID")

	if err := h.service.Delete(r.Context(), userID, groupID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Group deleted successfully"})
}

// AddMember はメールアドレス指定でのメンバー追加を処理する。
// POST /api/groups/:groupId/add-user
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	groupID := chi.URLParam(r, "groupID")

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if req.Email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Email is required"))
		return
	}

	view, err := h.service.AddMember(r.Context(), userID, groupID, req.Email, req.Role)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// RemoveMember はメンバーの削除を処理する。
// DELETE /api/groups/:groupId/users/:userId
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	groupID := chi.URLParam(r, "groupID")
	userID := chi.URLParam(r, "userID")

	view, err := h.service.RemoveMember(r.Context(), requesterID, groupID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// UpdateMember はメンバーのrole/status更新を処理する。
// PATCH /api/groups/:groupId/users/:userId
func (h *GroupHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	groupID := chi.URLParam(r, "groupID")
	userID := chi.URLParam(r, "userID")

	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if req.Role == nil && req.Status == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Role or status is required"))
		return
	}

	view, err := h.service.UpdateMember(r.Context(), requesterID, groupID, userID, req.Role, req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// ListMembers はグループのメンバー一覧を返す。
// GET /api/groups/:groupId/group-members
func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	members, err := h.service.ListMembers(r.Context(), groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.MemberView{"members": members})
}
