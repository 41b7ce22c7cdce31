// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/taskly/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する（大文字小文字を区別しない）。
	// 見つからない場合はnilを返す。パスワードハッシュを含む唯一の読み取り経路。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスの一意制約違反はmodel.APIError(EMAIL_IN_USE)として返す。
	Create(ctx context.Context, user *model.User) error

	// UpdatePasswordHash は指定ユーザーのパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// FindRefsByIDs は指定ID集合のname/emailプロジェクションを返す。
	// 見つからないIDはマップに含まれない。
	FindRefsByIDs(ctx context.Context, ids []string) (map[string]model.UserRef, error)
}

// GroupRepository はグループ集約の永続化インターフェース。
// メンバーシップリストはグループ集約の一部であり、このリポジトリ経由でのみ読み書きする。
type GroupRepository interface {
	// FindByID は指定IDのグループをメンバーシップリスト込みで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Group, error)

	// FindByCreatorAndName は作成者とグループ名の組でグループを検索する。
	// 見つからない場合はnilを返す。
	FindByCreatorAndName(ctx context.Context, creatorID, name string) (*model.Group, error)

	// Create はグループと初期メンバーシップを同一トランザクションで作成する。
	// (created_by, name)の一意制約違反はmodel.APIError(GROUP_EXISTS)として返す。
	Create(ctx context.Context, group *model.Group) error

	// Rename はグループ名を更新する。
	Rename(ctx context.Context, id, name string) error

	// DeleteWithTasks はグループと、そのグループを参照する全タスクを
	// 同一トランザクションで削除する。両方成功するか、どちらも残るかのいずれか。
	DeleteWithTasks(ctx context.Context, id string) error

	// AddMember はメンバーシップエントリを追加する。
	AddMember(ctx context.Context, groupID string, member model.GroupMember) error

	// RemoveMember は指定ユーザーのメンバーシップエントリを削除する。
	RemoveMember(ctx context.Context, groupID, userID string) error

	// UpdateMember は指定メンバーのrole/statusを上書きする。nilのフィールドは変更しない。
	UpdateMember(ctx context.Context, groupID, userID string, role, status *string) error

	// ListByCreator は指定ユーザーが作成したグループの一覧をメンバー込みで返す。
	ListByCreator(ctx context.Context, userID string) ([]*model.Group, error)

	// ListByMemberNotCreator は指定ユーザーがメンバーだが作成者ではない
	// グループの一覧をメンバー込みで返す。
	ListByMemberNotCreator(ctx context.Context, userID string) ([]*model.Group, error)

	// ListGroupIDsByMember は指定ユーザーがメンバーである全グループのIDを返す。
	ListGroupIDsByMember(ctx context.Context, userID string) ([]string, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
// タスクはグループから独立した集約で、group_idとassigned_toで索引する。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// Create はタスクを作成する。
	// (group, assignee)の未完了タスク一意制約違反はmodel.APIError(ACTIVE_TASK_EXISTS)として返す。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクを上書き更新する。
	Update(ctx context.Context, task *model.Task) error

	// Delete は指定IDのタスクを削除する。
	Delete(ctx context.Context, id string) error

	// ExistsActiveForAssignee は指定(group, assignee)に未完了タスクが存在するかを返す。
	ExistsActiveForAssignee(ctx context.Context, groupID, assigneeID string) (bool, error)

	// ListByGroup はグループを参照する全タスクを返す。
	ListByGroup(ctx context.Context, groupID string) ([]*model.Task, error)

	// ListByGroupAndAssignee は指定(group, user)のタスクを期日昇順で返す。
	ListByGroupAndAssignee(ctx context.Context, groupID, userID string) ([]*model.Task, error)

	// ListByAssigneeInGroups は指定グループ群の中でユーザーに割り当てられた
	// タスクを期日昇順で返す。
	ListByAssigneeInGroups(ctx context.Context, userID string, groupIDs []string) ([]*model.Task, error)
}
