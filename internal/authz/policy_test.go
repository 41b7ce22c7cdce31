package authz

import (
	"testing"

	"github.com/hitoshi/taskly/internal/model"
)

func testGroup() *model.Group {
	return &model.Group{
		ID:        "group-1",
		Name:      "Eng",
		CreatedBy: "admin-1",
		Members: []model.GroupMember{
			{UserID: "admin-1", Role: model.RoleAdmin},
			{UserID: "member-1", Role: model.RoleMember},
		},
	}
}

// TestAuthorize_GroupMutations_AdminGate は全グループ変更操作で
// adminのみが許可されることを検証する。
func TestAuthorize_GroupMutations_AdminGate(t *testing.T) {
	actions := []Action{
		ActionGroupRename,
		ActionGroupDelete,
		ActionGroupAddMember,
		ActionGroupRemoveMember,
		ActionGroupUpdateMember,
	}

	for _, action := range actions {
		t.Run(string(action), func(t *testing.T) {
			group := testGroup()

			if d := Authorize(Input{RequesterID: "admin-1", Action: action, Group: group}); !d.Allowed {
				t.Errorf("admin should be allowed, got reason %q", d.Reason)
			}
			if d := Authorize(Input{RequesterID: "member-1", Action: action, Group: group}); d.Allowed {
				t.Error("plain member should be denied")
			}
			if d := Authorize(Input{RequesterID: "outsider", Action: action, Group: group}); d.Allowed {
				t.Error("non-member should be denied")
			}
		})
	}
}

// TestAuthorize_GroupMutation_NilGroup は対象グループなしの判定が拒否になることを検証する。
func TestAuthorize_GroupMutation_NilGroup(t *testing.T) {
	d := Authorize(Input{RequesterID: "admin-1", Action: ActionGroupRename})
	if d.Allowed {
		t.Error("expected deny for nil group")
	}
}

// TestAuthorize_TaskUpdate_Creator は作成者が任意のフィールドを更新できることを検証する。
func TestAuthorize_TaskUpdate_Creator(t *testing.T) {
	task := &model.Task{ID: "task-1", CreatedBy: "creator-1", AssignedTo: "member-1"}
	title := "new title"
	status := model.StatusInProgress
	patch := &model.TaskPatch{Title: &title, Status: &status}

	d := Authorize(Input{
		RequesterID: "creator-1",
		Action:      ActionTaskUpdate,
		Task:        task,
		Patch:       patch,
	})
	if !d.Allowed {
		t.Errorf("creator should be allowed, got reason %q", d.Reason)
	}
}

// TestAuthorize_TaskUpdate_Assignee は担当者がstatusのみ更新できることを検証する。
func TestAuthorize_TaskUpdate_Assignee(t *testing.T) {
	task := &model.Task{ID: "task-1", CreatedBy: "creator-1", AssignedTo: "member-1"}
	status := model.StatusCompleted
	title := "new title"

	tests := []struct {
		name      string
		patch     *model.TaskPatch
		wantAllow bool
	}{
		{
			name:      "status only",
			patch:     &model.TaskPatch{Status: &status},
			wantAllow: true,
		},
		{
			name:      "status plus title",
			patch:     &model.TaskPatch{Status: &status, Title: &title},
			wantAllow: false,
		},
		{
			name:      "title only",
			patch:     &model.TaskPatch{Title: &title},
			wantAllow: false,
		},
		{
			name:      "empty patch",
			patch:     &model.TaskPatch{},
			wantAllow: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(Input{
				RequesterID: "member-1",
				Action:      ActionTaskUpdate,
				Task:        task,
				Patch:       tt.patch,
			})
			if d.Allowed != tt.wantAllow {
				t.Errorf("Allowed = %v, want %v (reason %q)", d.Allowed, tt.wantAllow, d.Reason)
			}
		})
	}
}

// TestAuthorize_TaskUpdate_Unrelated は作成者でも担当者でもないユーザーが拒否されることを検証する。
func TestAuthorize_TaskUpdate_Unrelated(t *testing.T) {
	task := &model.Task{ID: "task-1", CreatedBy: "creator-1", AssignedTo: "member-1"}
	status := model.StatusCompleted

	d := Authorize(Input{
		RequesterID: "outsider",
		Action:      ActionTaskUpdate,
		Task:        task,
		Patch:       &model.TaskPatch{Status: &status},
	})
	if d.Allowed {
		t.Error("unrelated user should be denied")
	}
}

// TestAuthorize_TaskDelete はタスク削除が作成者とグループadminに限定されることを検証する。
func TestAuthorize_TaskDelete(t *testing.T) {
	group := testGroup()
	task := &model.Task{ID: "task-1", GroupID: group.ID, CreatedBy: "creator-1", AssignedTo: "member-1"}

	tests := []struct {
		name      string
		requester string
		wantAllow bool
	}{
		{name: "creator", requester: "creator-1", wantAllow: true},
		{name: "group admin", requester: "admin-1", wantAllow: true},
		{name: "assignee without admin role", requester: "member-1", wantAllow: false},
		{name: "outsider", requester: "outsider", wantAllow: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(Input{
				RequesterID: tt.requester,
				Action:      ActionTaskDelete,
				Task:        task,
				Group:       group,
			})
			if d.Allowed != tt.wantAllow {
				t.Errorf("Allowed = %v, want %v (reason %q)", d.Allowed, tt.wantAllow, d.Reason)
			}
		})
	}
}

// TestAuthorize_UnknownAction は未定義アクションが拒否されることを検証する。
func TestAuthorize_UnknownAction(t *testing.T) {
	d := Authorize(Input{RequesterID: "admin-1", Action: Action("group.unknown"), Group: testGroup()})
	if d.Allowed {
		t.Error("unknown action should be denied")
	}
}
