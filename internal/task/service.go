// Package task はタスクのライフサイクル（作成・更新・削除・一覧）のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskly/internal/authz"
	"github.com/hitoshi/taskly/internal/model"
	"github.com/hitoshi/taskly/internal/repository"
)

// TextSanitizer はユーザー入力の自由テキストをサニタイズするインターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder はタスク操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordTaskCreated()
	RecordTaskCompleted()
}

// Service はタスク管理のサービス層。
// 更新・削除の認可判定はauthzポリシーに委譲する。
type Service struct {
	taskRepo  repository.TaskRepository
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	sanitizer TextSanitizer
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	taskRepo repository.TaskRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	sanitizer TextSanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		taskRepo:  taskRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// CreateInput はタスク作成リクエストの入力。
type CreateInput struct {
	GroupID     string
	AssignedTo  string
	Title       string
	Description string
	DueDate     time.Time
	Priority    string
	Difficulty  string
}

// Create は新規タスクを作成する。
// 担当者は作成時点で対象グループのメンバーでなければならない。
// 同じ(グループ, 担当者)に未完了タスクが既にある場合はACTIVE_TASK_EXISTS。
func (s *Service) Create(ctx context.Context, requesterID string, in CreateInput) (*model.TaskView, error) {
	title := strings.TrimSpace(s.sanitizer.Sanitize(in.Title))
	if title == "" {
		return nil, model.NewValidationError("Title is required")
	}
	if in.AssignedTo == "" {
		return nil, model.NewValidationError("Assigned user is required")
	}
	if in.DueDate.IsZero() {
		return nil, model.NewValidationError("Due date is required")
	}

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.IsValidPriority(priority) {
		return nil, model.NewValidationError("Priority must be low, medium or high")
	}

	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyEasy
	}
	if !model.IsValidDifficulty(difficulty) {
		return nil, model.NewValidationError("Difficulty must be easy, medium or hard")
	}

	group, err := s.groupRepo.FindByID(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError()
	}
	if !group.IsMember(in.AssignedTo) {
		return nil, model.NewForbiddenError("User is not a member of the group")
	}

	// 事前チェック。ストレージ側の部分一意インデックスが競合時の保険になる。
	active, err := s.taskRepo.ExistsActiveForAssignee(ctx, in.GroupID, in.AssignedTo)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, model.NewActiveTaskExistsError()
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.NewString(),
		GroupID:     in.GroupID,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   requesterID,
		Title:       title,
		Description: s.sanitizer.Sanitize(in.Description),
		DueDate:     in.DueDate,
		Priority:    priority,
		Difficulty:  difficulty,
		Status:      model.StatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCreated()
	}
	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("group_id", task.GroupID),
		slog.String("assigned_to", task.AssignedTo),
		slog.String("created_by", requesterID),
	)

	return s.view(ctx, task, "")
}

// Update はタスクを部分更新する。
// 作成者は全フィールドを、担当者はstatusのみを更新できる。
// 担当者の変更時は、新しい担当者のメンバーシップと未完了タスクの一意性を検証する。
func (s *Service) Update(ctx context.Context, requesterID, taskID string, patch *model.TaskPatch) (*model.TaskView, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError()
	}

	decision := authz.Authorize(authz.Input{
		RequesterID: requesterID,
		Action:      authz.ActionTaskUpdate,
		Task:        task,
		Patch:       patch,
	})
	if !decision.Allowed {
		return nil, model.NewForbiddenError(decision.Reason)
	}

	if patch.Priority != nil && !model.IsValidPriority(*patch.Priority) {
		return nil, model.NewValidationError("Priority must be low, medium or high")
	}
	if patch.Difficulty != nil && !model.IsValidDifficulty(*patch.Difficulty) {
		return nil, model.NewValidationError("Difficulty must be easy, medium or hard")
	}
	if patch.Status != nil && !model.IsValidTaskStatus(*patch.Status) {
		return nil, model.NewValidationError("Status must be not started, in progress or completed")
	}

	nextAssignee := task.AssignedTo
	if patch.AssignedTo != nil {
		nextAssignee = *patch.AssignedTo
	}
	nextStatus := task.Status
	if patch.Status != nil {
		nextStatus = *patch.Status
	}

	if nextAssignee != task.AssignedTo {
		group, err := s.groupRepo.FindByID(ctx, task.GroupID)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, model.NewGroupNotFoundError()
		}
		if !group.IsMember(nextAssignee) {
			return nil, model.NewForbiddenError("User is not a member of the group")
		}
	}

	// 担当者の付け替え、および完了済みタスクの再開は未完了タスクを増やすため、
	// (group, assignee)ごとの未完了タスク一意性を事前に検証する
	if nextStatus != model.StatusCompleted && (nextAssignee != task.AssignedTo || task.IsCompleted()) {
		active, err := s.taskRepo.ExistsActiveForAssignee(ctx, task.GroupID, nextAssignee)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, model.NewActiveTaskExistsError()
		}
	}

	wasCompleted := task.IsCompleted()
	s.apply(task, patch)
	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	if s.metrics != nil && !wasCompleted && task.IsCompleted() {
		s.metrics.RecordTaskCompleted()
	}
	slog.Info("task updated",
		slog.String("task_id", task.ID),
		slog.String("updated_by", requesterID),
		slog.Any("fields", patch.Fields()),
	)

	return s.view(ctx, task, "")
}

// Delete はタスクを削除する。作成者、またはタスクのグループのadminのみ実行できる。
func (s *Service) Delete(ctx context.Context, requesterID, taskID string) error {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return model.NewTaskNotFoundError()
	}

	group, err := s.groupRepo.FindByID(ctx, task.GroupID)
	if err != nil {
		return err
	}

	decision := authz.Authorize(authz.Input{
		RequesterID: requesterID,
		Action:      authz.ActionTaskDelete,
		Task:        task,
		Group:       group,
	})
	if !decision.Allowed {
		return model.NewForbiddenError(decision.Reason)
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return err
	}

	slog.Info("task deleted",
		slog.String("task_id", taskID),
		slog.String("deleted_by", requesterID),
	)

	return nil
}

// ListByGroup は指定グループの全タスクを返す。メンバー限定。
func (s *Service) ListByGroup(ctx context.Context, requesterID, groupID string) ([]model.TaskView, error) {
	group, err := s.memberGroup(ctx, requesterID, groupID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tasks, nil)
}

// ListByUserInGroup は指定(グループ, ユーザー)のタスクを期日昇順で返す。
// リクエスタが対象ユーザー本人であるか、グループのメンバーであること。
func (s *Service) ListByUserInGroup(ctx context.Context, requesterID, groupID, userID string) ([]model.TaskView, error) {
	if requesterID != userID {
		if _, err := s.memberGroup(ctx, requesterID, groupID); err != nil {
			return nil, err
		}
	}

	tasks, err := s.taskRepo.ListByGroupAndAssignee(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tasks, nil)
}

// ListAssignedToMe はリクエスタがメンバーである全グループを横断して、
// リクエスタに割り当てられたタスクを期日昇順で返す。グループ名も解決する。
func (s *Service) ListAssignedToMe(ctx context.Context, requesterID string) ([]model.TaskView, error) {
	groupIDs, err := s.groupRepo.ListGroupIDsByMember(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return []model.TaskView{}, nil
	}

	tasks, err := s.taskRepo.ListByAssigneeInGroups(ctx, requesterID, groupIDs)
	if err != nil {
		return nil, err
	}

	groupNames := make(map[string]string)
	for _, t := range tasks {
		if _, ok := groupNames[t.GroupID]; ok {
			continue
		}
		g, err := s.groupRepo.FindByID(ctx, t.GroupID)
		if err != nil {
			return nil, err
		}
		if g != nil {
			groupNames[t.GroupID] = g.Name
		}
	}

	return s.views(ctx, tasks, groupNames)
}

// memberGroup はグループを取得し、リクエスタがメンバーであることを検証する。
func (s *Service) memberGroup(ctx context.Context, requesterID, groupID string) (*model.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError()
	}
	if !group.IsMember(requesterID) {
		return nil, model.NewForbiddenError("You are not a member of this group")
	}
	return group, nil
}

// apply はnilでないフィールドのみをタスクに反映する。
func (s *Service) apply(task *model.Task, patch *model.TaskPatch) {
	if patch.Title != nil {
		task.Title = strings.TrimSpace(s.sanitizer.Sanitize(*patch.Title))
	}
	if patch.Description != nil {
		task.Description = s.sanitizer.Sanitize(*patch.Description)
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Difficulty != nil {
		task.Difficulty = *patch.Difficulty
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		task.AssignedTo = *patch.AssignedTo
	}
}

// view は単一タスクのユーザー参照を解決してプロジェクションを返す。
func (s *Service) view(ctx context.Context, task *model.Task, groupName string) (*model.TaskView, error) {
	names := map[string]string{}
	if groupName != "" {
		names[task.GroupID] = groupName
	}
	views, err := s.views(ctx, []*model.Task{task}, names)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views は複数タスクの担当者・作成者参照を一括で解決する。
// groupNamesが与えられた場合はグループ名も埋める。
func (s *Service) views(ctx context.Context, tasks []*model.Task, groupNames map[string]string) ([]model.TaskView, error) {
	var ids []string
	for _, t := range tasks {
		ids = append(ids, t.AssignedTo, t.CreatedBy)
	}

	refs, err := s.userRepo.FindRefsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user refs: %w", err)
	}

	views := make([]model.TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = model.TaskView{
			ID:          t.ID,
			GroupID:     t.GroupID,
			GroupName:   groupNames[t.GroupID],
			AssignedTo:  refs[t.AssignedTo],
			CreatedBy:   refs[t.CreatedBy],
			Title:       t.Title,
			Description: t.Description,
			DueDate:     t.DueDate,
			Priority:    t.Priority,
			Difficulty:  t.Difficulty,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
	}

	return views, nil
}
