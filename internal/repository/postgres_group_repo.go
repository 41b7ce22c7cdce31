package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskly/internal/model"
)

// PostgresGroupRepo はPostgreSQLを使用したグループリポジトリ。
// group_membersはグループ集約の一部として、このリポジトリ経由でのみ操作する。
type PostgresGroupRepo struct {
	db *sql.DB
}

// NewPostgresGroupRepo はPostgresGroupRepoを生成する。
func NewPostgresGroupRepo(db *sql.DB) *PostgresGroupRepo {
	return &PostgresGroupRepo{db: db}
}

// FindByID は指定IDのグループをメンバーシップリスト込みで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindByID(ctx context.Context, id string) (*model.Group, error) {
	group := &model.Group{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at, updated_at FROM groups WHERE id = $1`,
		id,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group by ID: %w", err)
	}

	members, err := r.loadMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	group.Members = members

	return group, nil
}

// FindByCreatorAndName は作成者とグループ名の組でグループを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindByCreatorAndName(ctx context.Context, creatorID, name string) (*model.Group, error) {
	group := &model.Group{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at, updated_at
		 FROM groups WHERE created_by = $1 AND name = $2`,
		creatorID, name,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group by creator and name: %w", err)
	}

	return group, nil
}

// Create はグループと初期メンバーシップを同一トランザクションで作成する。
func (r *PostgresGroupRepo) Create(ctx context.Context, group *model.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.Name, group.CreatedBy, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "groups_creator_name_idx") {
			return model.NewGroupExistsError()
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for _, m := range group.Members {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, role, status, joined_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			group.ID, m.UserID, m.Role, m.Status, m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Rename はグループ名を更新する。
func (r *PostgresGroupRepo) Rename(ctx context.Context, id, name string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE groups SET name = $2, updated_at = now() WHERE id = $1`,
		id, name,
	)
	if err != nil {
		// 改名先が同じ作成者の既存グループ名と衝突する場合がある
		if isUniqueViolation(err, "groups_creator_name_idx") {
			return model.NewGroupExistsError()
		}
		return fmt.Errorf("failed to rename group: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewGroupNotFoundError()
	}
	return nil
}

// DeleteWithTasks はグループと、そのグループを参照する全タスクを
// 同一トランザクションで削除する。タスク削除が失敗した場合はグループも残る。
func (r *PostgresGroupRepo) DeleteWithTasks(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tasks WHERE group_id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to delete group tasks: %w", err)
	}

	// group_membersはON DELETE CASCADEで一緒に消える
	result, err := tx.ExecContext(ctx,
		`DELETE FROM groups WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewGroupNotFoundError()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddMember はメンバーシップエントリを追加する。
func (r *PostgresGroupRepo) AddMember(ctx context.Context, groupID string, member model.GroupMember) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, status, joined_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		groupID, member.UserID, member.Role, member.Status, member.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "group_members_pkey") {
			return model.NewAlreadyMemberError()
		}
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

// RemoveMember は指定ユーザーのメンバーシップエントリを削除する。
func (r *PostgresGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewMemberNotFoundError()
	}
	return nil
}

// UpdateMember は指定メンバーのrole/statusを上書きする。nilのフィールドは変更しない。
func (r *PostgresGroupRepo) UpdateMember(ctx context.Context, groupID, userID string, role, status *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE group_members
		 SET role = COALESCE($3, role), status = COALESCE($4, status)
		 WHERE group_id = $1 AND user_id = $2`,
		groupID, userID, role, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update group member: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewMemberNotFoundError()
	}
	return nil
}

// ListByCreator は指定ユーザーが作成したグループの一覧をメンバー込みで返す。
func (r *PostgresGroupRepo) ListByCreator(ctx context.Context, userID string) ([]*model.Group, error) {
	return r.listGroups(ctx,
		`SELECT id, name, created_by, created_at, updated_at
		 FROM groups WHERE created_by = $1 ORDER BY created_at`,
		userID,
	)
}

// ListByMemberNotCreator は指定ユーザーがメンバーだが作成者ではない
// グループの一覧をメンバー込みで返す。
func (r *PostgresGroupRepo) ListByMemberNotCreator(ctx context.Context, userID string) ([]*model.Group, error) {
	return r.listGroups(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at, g.updated_at
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = $1 AND g.created_by <> $1
		 ORDER BY g.created_at`,
		userID,
	)
}

// ListGroupIDsByMember は指定ユーザーがメンバーである全グループのIDを返す。
func (r *PostgresGroupRepo) ListGroupIDsByMember(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id FROM group_members WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group IDs by member: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group IDs: %w", err)
	}

	return ids, nil
}

// listGroups はグループ行のクエリを実行し、各グループのメンバーを読み込んで返す。
func (r *PostgresGroupRepo) listGroups(ctx context.Context, query string, args ...any) ([]*model.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*model.Group
	for rows.Next() {
		g := &model.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for _, g := range groups {
		members, err := r.loadMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.Members = members
	}

	return groups, nil
}

// loadMembers は指定グループのメンバーシップエントリを参加順で読み込む。
func (r *PostgresGroupRepo) loadMembers(ctx context.Context, groupID string) ([]model.GroupMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, role, status, joined_at
		 FROM group_members WHERE group_id = $1 ORDER BY joined_at`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load group members: %w", err)
	}
	defer rows.Close()

	var members []model.GroupMember
	for rows.Next() {
		var m model.GroupMember
		if err := rows.Scan(&m.UserID, &m.Role, &m.Status, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}

// compile-time interface check
var _ GroupRepository = (*PostgresGroupRepo)(nil)
