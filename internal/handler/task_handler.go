package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskly/internal/middleware"
	"github.com/hitoshi/taskly/internal/model"
	"github.com/hitoshi/taskly/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	Create(ctx context.Context, requesterID string, in task.CreateInput) (*model.TaskView, error)
	Update(ctx context.Context, requesterID, taskID string, patch *model.TaskPatch) (*model.TaskView, error)
	Delete(ctx context.Context, requesterID, taskID string) error
	ListByGroup(ctx context.Context, requesterID, groupID string) ([]model.TaskView, error)
	ListByUserInGroup(ctx context.Context, requesterID, groupID, userID string) ([]model.TaskView, error)
	ListAssignedToMe(ctx context.Context, requesterID string) ([]model.TaskView, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	GroupID     string `json:"groupId"`
	AssignedTo  string `json:"assignedTo"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority"`
	Difficulty  string `json:"difficulty"`
}

// updateTaskRequest はタスク更新リクエストのボディ。
// フィールドの有無を担当者の認可判定に使うため、すべてポインタで受ける。
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Priority    *string `json:"priority"`
	Difficulty  *string `json:"difficulty"`
	Status      *string `json:"status"`
	AssignedTo  *string `json:"assignedTo"`
}

// parseDueDate は期日文字列をRFC 3339または日付のみの形式として解析する。
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Create はタスク作成を処理する。
// POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	in := task.CreateInput{
		GroupID:     req.GroupID,
		AssignedTo:  req.AssignedTo,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Difficulty:  req.Difficulty,
	}
	if req.DueDate != "" {
		due, err := parseDueDate(req.DueDate)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("Due date must be a valid date"))
			return
		}
		in.DueDate = due
	}

	view, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// Update はタスクの部分更新を処理する。
// PATCH /api/tasks/:taskId
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	taskID := chi.URLParam(r, "id")

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	patch := &model.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Difficulty:  req.Difficulty,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("Due date must be a valid date"))
			return
		}
		patch.DueDate = &due
	}

	if len(patch.Fields()) == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("At least one field is required"))
		return
	}

	view, err := h.service.Update(r.Context(), userID, taskID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Delete はタスク削除を処理する。
// DELETE /api/tasks/:taskId
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	taskID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// ListByGroup はグループの全タスクを返す。
// GET /api/tasks/:groupId
func (h *TaskHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	groupID := chi.URLParam(r, "id")

	views, err := h.service.ListByGroup(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// ListByUserInGroup は指定グループ内で指定ユーザーに割り当てられたタスクを返す。
// GET /api/tasks/:groupId/user/:userId
func (h *TaskHandler) ListByUserInGroup(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	groupID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")

	views, err := h.service.ListByUserInGroup(r.Context(), requesterID, groupID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// ListAssignedToMe は全所属グループを横断して自分に割り当てられたタスクを返す。
// GET /api/tasks/assigned/me
func (h *TaskHandler) ListAssignedToMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	views, err := h.service.ListAssignedToMe(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}
