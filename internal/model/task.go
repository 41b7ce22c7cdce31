package model

import "time"

// タスクの優先度。
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// タスクの難易度。
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// タスクのステータス。状態遷移の順序は強制しない:
// 認可された操作者はいつでも任意の値を設定できる。
const (
	StatusNotStarted = "not started"
	StatusInProgress = "in progress"
	StatusCompleted  = "completed"
)

// IsValidPriority は優先度の値が定義済みかどうかを返す。
func IsValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// IsValidDifficulty は難易度の値が定義済みかどうかを返す。
func IsValidDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// IsValidTaskStatus はステータスの値が定義済みかどうかを返す。
func IsValidTaskStatus(s string) bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusCompleted
}

// Task はグループ内の作業単位を表す。
// グループとは参照で結び付く独立した集約であり、
// 担当者横断のクエリ（自分に割り当てられた全タスク）を可能にする。
type Task struct {
	ID          string
	GroupID     string
	AssignedTo  string
	CreatedBy   string
	Title       string
	Description string
	DueDate     time.Time
	Priority    string // low | medium | high
	Difficulty  string // easy | medium | hard
	Status      string // not started | in progress | completed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsCompleted はタスクが完了済みかどうかを返す。
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// TaskPatch はタスク更新リクエストの部分更新を表す。
// nilのフィールドはリクエストに含まれていなかったことを意味する。
// 担当者によるstatus限定更新の判定にフィールドの有無をそのまま使う。
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *string
	Difficulty  *string
	Status      *string
	AssignedTo  *string
}

// Fields は更新リクエストに含まれていたフィールド名の一覧を返す。
func (p *TaskPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.DueDate != nil {
		fields = append(fields, "dueDate")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Difficulty != nil {
		fields = append(fields, "difficulty")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.AssignedTo != nil {
		fields = append(fields, "assignedTo")
	}
	return fields
}

// StatusOnly はstatusフィールドのみが含まれた更新かどうかを返す。
func (p *TaskPatch) StatusOnly() bool {
	return p.Status != nil &&
		p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Priority == nil && p.Difficulty == nil && p.AssignedTo == nil
}

// TaskView は担当者・作成者（必要に応じてグループ）を解決したタスクのプロジェクション。
type TaskView struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"groupId"`
	GroupName   string    `json:"groupName,omitempty"`
	AssignedTo  UserRef   `json:"assignedTo"`
	CreatedBy   UserRef   `json:"createdBy"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	Priority    string    `json:"priority"`
	Difficulty  string    `json:"difficulty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
