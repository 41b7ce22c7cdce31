// Package authz はグループ・タスク操作の認可ポリシーを提供する。
//
// 認可判定はハンドラごとに分散させず、リソース・アクション・リクエスタを
// 引数に取る単一のポリシー関数に集約する。グループ規則とタスク規則の
// ドリフトを防ぐため、すべてのサービスがこのポリシーを介して判定する。
package authz

import "github.com/hitoshi/taskly/internal/model"

// Action は認可対象の操作を表す。
type Action string

// グループ操作。作成以外のすべての変更操作はadminロールを要求する。
const (
	ActionGroupRename       Action = "group.rename"
	ActionGroupDelete       Action = "group.delete"
	ActionGroupAddMember    Action = "group.add_member"
	ActionGroupRemoveMember Action = "group.remove_member"
	ActionGroupUpdateMember Action = "group.update_member"
)

// タスク操作。
const (
	ActionTaskUpdate Action = "task.update"
	ActionTaskDelete Action = "task.delete"
)

// Input は認可判定の入力をまとめた構造体。
type Input struct {
	RequesterID string
	Action      Action

	// Group は対象グループ。グループ操作とタスク操作の両方で必須。
	Group *model.Group

	// Task は対象タスク。タスク操作でのみ必須。
	Task *model.Task

	// Patch はタスク更新の部分更新内容。ActionTaskUpdateでのみ参照する。
	Patch *model.TaskPatch
}

// Decision は認可判定の結果を表す。
type Decision struct {
	Allowed bool
	Reason  string // 拒否時のユーザー向けメッセージ
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Authorize はリクエスタが指定アクションを実行できるかを判定する。
//
// グループ規則: 作成を除くすべての変更操作は、リクエスタが対象グループで
// role=adminのメンバーであることを要求する。削除もadmin限定とする。
//
// タスク規則: 作成者は全フィールドを更新できる。担当者はstatusフィールド
// のみを含む更新だけ実行できる。削除は作成者またはグループのadmin。
func Authorize(in Input) Decision {
	switch in.Action {
	case ActionGroupRename, ActionGroupDelete, ActionGroupAddMember,
		ActionGroupRemoveMember, ActionGroupUpdateMember:
		return authorizeGroupMutation(in)
	case ActionTaskUpdate:
		return authorizeTaskUpdate(in)
	case ActionTaskDelete:
		return authorizeTaskDelete(in)
	default:
		return deny("Unknown action.")
	}
}

// authorizeGroupMutation はグループ変更操作のadminゲートを判定する。
func authorizeGroupMutation(in Input) Decision {
	if in.Group == nil {
		return deny("Group not found.")
	}
	if !in.Group.IsAdmin(in.RequesterID) {
		return deny("Only admins can perform this action.")
	}
	return allow()
}

// authorizeTaskUpdate はタスク更新の認可を判定する。
func authorizeTaskUpdate(in Input) Decision {
	if in.Task == nil {
		return deny("Task not found.")
	}

	if in.RequesterID == in.Task.CreatedBy {
		// 作成者は任意のフィールドの組み合わせを上書きできる
		return allow()
	}

	if in.RequesterID == in.Task.AssignedTo {
		// 担当者はstatusのみ。他フィールドの存在もstatusの欠落も拒否する。
		if in.Patch == nil || !in.Patch.StatusOnly() {
			return deny("You are only allowed to update the status of this task")
		}
		return allow()
	}

	return deny("You are not authorized to update this task")
}

// authorizeTaskDelete はタスク削除の認可を判定する。
func authorizeTaskDelete(in Input) Decision {
	if in.Task == nil {
		return deny("Task not found.")
	}

	if in.RequesterID == in.Task.CreatedBy {
		return allow()
	}

	// 作成者でなくても、タスクのグループのadminなら削除できる
	if in.Group != nil && in.Group.IsAdmin(in.RequesterID) {
		return allow()
	}

	return deny("Only the task creator or a group admin can delete this task")
}
