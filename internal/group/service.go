// Package group はグループ集約（メンバーシップとロール）のドメインロジックを提供する。
package group

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

// MetricsRecorder はグループ操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordGroupCreated()
	RecordGroupDeleted()
}

// Service はグループ管理のサービス層。
// すべての変更操作（作成を除く）はauthzポリシーのadminゲートを通す。
type Service struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	sanitizer TextSanitizer
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	sanitizer TextSanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// MyGroups はマイグループ一覧の結果。2つの集合は互いに素。
type MyGroups struct {
	CreatedGroups []model.GroupView `json:"createdGroups"`
	MemberGroups  []model.GroupView `json:"memberGroups"`
}

// Create は新規グループを作成する。作成者は唯一の初期メンバーとして
// role=adminで登録される。同じ作成者に同名グループがあればGROUP_EXISTS。
func (s *Service) Create(ctx context.Context, requesterID, name string) (*model.GroupView, error) {
	name = strings.TrimSpace(s.sanitizer.Sanitize(name))
	if name == "" {
		return nil, model.NewValidationError("Group name is required")
	}

	// クエリしてから挿入する事前チェック。ストレージ側の一意制約が
	// 同時作成の競合時の保険になる。
	existing, err := s.groupRepo.FindByCreatorAndName(ctx, requesterID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewGroupExistsError()
	}

	now := time.Now()
	group := &model.Group{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: requesterID,
		Members: []model.GroupMember{
			{UserID: requesterID, Role: model.RoleAdmin, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordGroupCreated()
	}
	slog.Info("group created",
		slog.String("group_id", group.ID),
		slog.String("created_by", requesterID),
	)

	return s.view(ctx, group)
}

// Rename はグループ名を変更する。admin限定。
func (s *Service) Rename(ctx context.Context, requesterID, groupID, name string) (*model.GroupView, error) {
	name = strings.TrimSpace(s.sanitizer.Sanitize(name))
	if name == "" {
		return nil, model.NewValidationError("Group name is required")
	}

	group, err := s.authorizedGroup(ctx, requesterID, groupID, authz.ActionGroupRename)
	if err != nil {
		return nil, err
	}

	// 改名先が同じ作成者の別グループ名と重複しないことを事前に検証する。
	// 自分自身の現在名への改名は許す。
	existing, err := s.groupRepo.FindByCreatorAndName(ctx, group.CreatedBy, name)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != group.ID {
		return nil, model.NewGroupExistsError()
	}

	if err := s.groupRepo.Rename(ctx, groupID, name); err != nil {
		return nil, err
	}
	group.Name = name

	return s.view(ctx, group)
}

// Delete はグループと、そのグループを参照する全タスクを削除する。
// admin限定。削除はトランザクションで行い、途中で失敗した場合は何も消えない。
func (s *Service) Delete(ctx context.Context, requesterID, groupID string) error {
	if _, err := s.authorizedGroup(ctx, requesterID, groupID, authz.ActionGroupDelete); err != nil {
		return err
	}

	if err := s.groupRepo.DeleteWithTasks(ctx, groupID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordGroupDeleted()
	}
	slog.Info("group deleted",
		slog.String("group_id", groupID),
		slog.String("deleted_by", requesterID),
	)

	return nil
}

// AddMember はメールアドレスでユーザーを検索してグループに追加する。
// admin限定。roleが空の場合はmemberとして追加する。
func (s *Service) AddMember(ctx context.Context, requesterID, groupID, email, role string) (*model.GroupView, error) {
	group, err := s.authorizedGroup(ctx, requesterID, groupID, authz.ActionGroupAddMember)
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = model.RoleMember
	}
	if !model.IsValidRole(role) {
		return nil, model.NewValidationError("Role must be admin or member")
	}

	target, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	if group.IsMember(target.ID) {
		return nil, model.NewAlreadyMemberError()
	}

	member := model.GroupMember{
		UserID:   target.ID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	if err := s.groupRepo.AddMember(ctx, groupID, member); err != nil {
		return nil, err
	}
	group.Members = append(group.Members, member)

	slog.Info("member added",
		slog.String("group_id", groupID),
		slog.String("user_id", target.ID),
		slog.String("role", role),
	)

	return s.view(ctx, group)
}

// RemoveMember は指定ユーザーをグループから外す。admin限定。
// 対象が現在メンバーでない場合はMEMBER_NOT_FOUND。
func (s *Service) RemoveMember(ctx context.Context, requesterID, groupID, userID string) (*model.GroupView, error) {
	group, err := s.authorizedGroup(ctx, requesterID, groupID, authz.ActionGroupRemoveMember)
	if err != nil {
		return nil, err
	}

	if !group.IsMember(userID) {
		return nil, model.NewMemberNotFoundError()
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	filtered := group.Members[:0]
	for _, m := range group.Members {
		if m.UserID != userID {
			filtered = append(filtered, m)
		}
	}
	group.Members = filtered

	slog.Info("member removed",
		slog.String("group_id", groupID),
		slog.String("user_id", userID),
	)

	return s.view(ctx, group)
}

// UpdateMember は指定メンバーのrole/statusを上書きする。admin限定。
// nilのフィールドは変更しない。対象が現在メンバーでない場合はMEMBER_NOT_FOUND。
func (s *Service) UpdateMember(ctx context.Context, requesterID, groupID, userID string, role, status *string) (*model.GroupView, error) {
	group, err := s.authorizedGroup(ctx, requesterID, groupID, authz.ActionGroupUpdateMember)
	if err != nil {
		return nil, err
	}

	member := group.FindMember(userID)
	if member == nil {
		return nil, model.NewMemberNotFoundError()
	}

	if role != nil && !model.IsValidRole(*role) {
		return nil, model.NewValidationError("Role must be admin or member")
	}
	if status != nil {
		sanitized := s.sanitizer.Sanitize(*status)
		status = &sanitized
	}

	if err := s.groupRepo.UpdateMember(ctx, groupID, userID, role, status); err != nil {
		return nil, err
	}

	if role != nil {
		member.Role = *role
	}
	if status != nil {
		member.Status = *status
	}

	return s.view(ctx, group)
}

// ListMembers は指定グループのメンバー一覧をname/email解決済みで返す。
// 認証のみを要求し、ロールは問わない。
func (s *Service) ListMembers(ctx context.Context, groupID string) ([]model.MemberView, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError()
	}

	view, err := s.view(ctx, group)
	if err != nil {
		return nil, err
	}
	return view.Members, nil
}

// ListCreated はリクエスタが作成したグループの一覧を返す。
func (s *Service) ListCreated(ctx context.Context, requesterID string) ([]model.GroupView, error) {
	groups, err := s.groupRepo.ListByCreator(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, groups)
}

// ListMyGroups はリクエスタが作成したグループと、メンバーとして所属する
// （が作成者ではない）グループの2つの互いに素な集合を返す。
func (s *Service) ListMyGroups(ctx context.Context, requesterID string) (*MyGroups, error) {
	created, err := s.groupRepo.ListByCreator(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	member, err := s.groupRepo.ListByMemberNotCreator(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	createdViews, err := s.views(ctx, created)
	if err != nil {
		return nil, err
	}
	memberViews, err := s.views(ctx, member)
	if err != nil {
		return nil, err
	}

	return &MyGroups{CreatedGroups: createdViews, MemberGroups: memberViews}, nil
}

// authorizedGroup はグループを取得し、指定アクションのadminゲートを通す。
// グループ未存在はGROUP_NOT_FOUND、権限なしはFORBIDDENを返す。
func (s *Service) authorizedGroup(ctx context.Context, requesterID, groupID string, action authz.Action) (*model.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError()
	}

	decision := authz.Authorize(authz.Input{
		RequesterID: requesterID,
		Action:      action,
		Group:       group,
	})
	if !decision.Allowed {
		return nil, model.NewForbiddenError(decision.Reason)
	}

	return group, nil
}

// view はグループのユーザー参照（作成者と全メンバー）を解決してプロジェクションを返す。
func (s *Service) view(ctx context.Context, group *model.Group) (*model.GroupView, error) {
	views, err := s.views(ctx, []*model.Group{group})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views は複数グループのユーザー参照を一括で解決する。
func (s *Service) views(ctx context.Context, groups []*model.Group) ([]model.GroupView, error) {
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.CreatedBy)
		for _, m := range g.Members {
			ids = append(ids, m.UserID)
		}
	}

	refs, err := s.userRepo.FindRefsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user refs: %w", err)
	}

	views := make([]model.GroupView, len(groups))
	for i, g := range groups {
		members := make([]model.MemberView, len(g.Members))
		for j, m := range g.Members {
			members[j] = model.MemberView{
				User:     refs[m.UserID],
				Role:     m.Role,
				Status:   m.Status,
				JoinedAt: m.JoinedAt,
			}
		}
		views[i] = model.GroupView{
			ID:        g.ID,
			Name:      g.Name,
			CreatedBy: refs[g.CreatedBy],
			Members:   members,
			CreatedAt: g.CreatedAt,
			UpdatedAt: g.UpdatedAt,
		}
	}

	return views, nil
}
