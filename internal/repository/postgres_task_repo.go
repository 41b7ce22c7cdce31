package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/taskly/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

const taskColumns = `id, group_id, assigned_to, created_by, title, description,
	due_date, priority, difficulty, status, created_at, updated_at`

// scanTask は1行をmodel.Taskに読み込む。
func scanTask(row interface{ Scan(dest ...any) error }) (*model.Task, error) {
	t := &model.Task{}
	err := row.Scan(&t.ID, &t.GroupID, &t.AssignedTo, &t.CreatedBy, &t.Title, &t.Description,
		&t.DueDate, &t.Priority, &t.Difficulty, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}
	return task, nil
}

// Create はタスクを作成する。
// (group, assignee)の未完了タスク一意制約違反はACTIVE_TASK_EXISTSとして返す
// （事前チェックとの競合時の保険）。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, group_id, assigned_to, created_by, title, description,
		 due_date, priority, difficulty, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		task.ID, task.GroupID, task.AssignedTo, task.CreatedBy, task.Title, task.Description,
		task.DueDate, task.Priority, task.Difficulty, task.Status, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "tasks_active_per_assignee_idx") {
			return model.NewActiveTaskExistsError()
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update はタスクを上書き更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET assigned_to = $2, title = $3, description = $4, due_date = $5,
		     priority = $6, difficulty = $7, status = $8, updated_at = now()
		 WHERE id = $1`,
		task.ID, task.AssignedTo, task.Title, task.Description, task.DueDate,
		task.Priority, task.Difficulty, task.Status,
	)
	if err != nil {
		// 再開や付け替えで未完了タスクの一意制約に当たる場合がある
		if isUniqueViolation(err, "tasks_active_per_assignee_idx") {
			return model.NewActiveTaskExistsError()
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewTaskNotFoundError()
	}
	return nil
}

// Delete は指定IDのタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewTaskNotFoundError()
	}
	return nil
}

// ExistsActiveForAssignee は指定(group, assignee)に未完了タスクが存在するかを返す。
func (r *PostgresTaskRepo) ExistsActiveForAssignee(ctx context.Context, groupID, assigneeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM tasks
		   WHERE group_id = $1 AND assigned_to = $2 AND status <> 'completed'
		 )`,
		groupID, assigneeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active task: %w", err)
	}
	return exists, nil
}

// ListByGroup はグループを参照する全タスクを作成順で返す。
func (r *PostgresTaskRepo) ListByGroup(ctx context.Context, groupID string) ([]*model.Task, error) {
	return r.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE group_id = $1 ORDER BY created_at`,
		groupID,
	)
}

// ListByGroupAndAssignee は指定(group, user)のタスクを期日昇順で返す。
func (r *PostgresTaskRepo) ListByGroupAndAssignee(ctx context.Context, groupID, userID string) ([]*model.Task, error) {
	return r.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE group_id = $1 AND assigned_to = $2 ORDER BY due_date`,
		groupID, userID,
	)
}

// ListByAssigneeInGroups は指定グループ群の中でユーザーに割り当てられた
// タスクを期日昇順で返す。
func (r *PostgresTaskRepo) ListByAssigneeInGroups(ctx context.Context, userID string, groupIDs []string) ([]*model.Task, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(groupIDs))
	args := make([]any, 0, len(groupIDs)+1)
	args = append(args, userID)
	for i, id := range groupIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	return r.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE assigned_to = $1 AND group_id IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY due_date`,
		args...,
	)
}

// listTasks はタスク行のクエリを実行して結果を返す。
func (r *PostgresTaskRepo) listTasks(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
