package group

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/taskly/internal/model"
)

// --- モック ---

type mockGroupRepo struct {
	findByIDFn             func(ctx context.Context, id string) (*model.Group, error)
	findByCreatorAndNameFn func(ctx context.Context, creatorID, name string) (*model.Group, error)
	createFn               func(ctx context.Context, group *model.Group) error
	renameFn               func(ctx context.Context, id, name string) error
	deleteWithTasksFn      func(ctx context.Context, id string) error
	addMemberFn            func(ctx context.Context, groupID string, member model.GroupMember) error
	removeMemberFn         func(ctx context.Context, groupID, userID string) error
	updateMemberFn         func(ctx context.Context, groupID, userID string, role, status *string) error
	listByCreatorFn        func(ctx context.Context, userID string) ([]*model.Group, error)
	listByMemberFn         func(ctx context.Context, userID string) ([]*model.Group, error)
}

func (m *mockGroupRepo) FindByID(ctx context.Context, id string) (*model.Group, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockGroupRepo) FindByCreatorAndName(ctx context.Context, creatorID, name string) (*model.Group, error) {
	if m.findByCreatorAndNameFn != nil {
		return m.findByCreatorAndNameFn(ctx, creatorID, name)
	}
	return nil, nil
}
func (m *mockGroupRepo) Create(ctx context.Context, group *model.Group) error {
	if m.createFn != nil {
		return m.createFn(ctx, group)
	}
	return nil
}
func (m *mockGroupRepo) Rename(ctx context.Context, id, name string) error {
	if m.renameFn != nil {
		return m.renameFn(ctx, id, name)
	}
	return nil
}
func (m *mockGroupRepo) DeleteWithTasks(ctx context.Context, id string) error {
	if m.deleteWithTasksFn != nil {
		return m.deleteWithTasksFn(ctx, id)
	}
	return nil
}
func (m *mockGroupRepo) AddMember(ctx context.Context, groupID string, member model.GroupMember) error {
	if m.addMemberFn != nil {
		return m.addMemberFn(ctx, groupID, member)
	}
	return nil
}
func (m *mockGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	if m.removeMemberFn != nil {
		return m.removeMemberFn(ctx, groupID, userID)
	}
	return nil
}
func (m *mockGroupRepo) UpdateMember(ctx context.Context, groupID, userID string, role, status *string) error {
	if m.updateMemberFn != nil {
		return m.updateMemberFn(ctx, groupID, userID, role, status)
	}
	return nil
}
func (m *mockGroupRepo) ListByCreator(ctx context.Context, userID string) ([]*model.Group, error) {
	if m.listByCreatorFn != nil {
		return m.listByCreatorFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockGroupRepo) ListByMemberNotCreator(ctx context.Context, userID string) ([]*model.Group, error) {
	if m.listByMemberFn != nil {
		return m.listByMemberFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockGroupRepo) ListGroupIDsByMember(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

type mockUserRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return nil
}
func (m *mockUserRepo) FindRefsByIDs(ctx context.Context, ids []string) (map[string]model.UserRef, error) {
	refs := make(map[string]model.UserRef, len(ids))
	for _, id := range ids {
		refs[id] = model.UserRef{ID: id, Name: "name-" + id, Email: id + "@example.com"}
	}
	return refs, nil
}

// noopSanitizer は入力をそのまま返すサニタイザ。
type noopSanitizer struct{}

func (noopSanitizer) Sanitize(raw string) string { return raw }

func adminGroup() *model.Group {
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

func newTestService(groupRepo *mockGroupRepo, userRepo *mockUserRepo) *Service {
	return NewService(groupRepo, userRepo, noopSanitizer{}, nil)
}

// --- テスト ---

// TestService_Create_CreatorBecomesSoleAdmin は作成者が唯一の初期adminメンバーに
// なることを検証する。
func TestService_Create_CreatorBecomesSoleAdmin(t *testing.T) {
	var created *model.Group
	repo := &mockGroupRepo{
		createFn: func(ctx context.Context, group *model.Group) error {
			created = group
			return nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	view, err := svc.Create(context.Background(), "user-1", "Eng")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if created.CreatedBy != "user-1" {
		t.Errorf("CreatedBy = %q, want %q", created.CreatedBy, "user-1")
	}
	if len(created.Members) != 1 {
		t.Fatalf("expected exactly 1 initial member, got %d", len(created.Members))
	}
	if created.Members[0].UserID != "user-1" || created.Members[0].Role != model.RoleAdmin {
		t.Errorf("initial member = %+v, want creator as admin", created.Members[0])
	}
	if view.CreatedBy.ID != "user-1" {
		t.Errorf("view.CreatedBy.ID = %q, want %q", view.CreatedBy.ID, "user-1")
	}
}

// TestService_Create_DuplicateName は同一作成者の同名グループが拒否されることを検証する。
func TestService_Create_DuplicateName(t *testing.T) {
	repo := &mockGroupRepo{
		findByCreatorAndNameFn: func(ctx context.Context, creatorID, name string) (*model.Group, error) {
			return &model.Group{ID: "existing", Name: name, CreatedBy: creatorID}, nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	_, err := svc.Create(context.Background(), "user-1", "Eng")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeGroupExists {
		t.Errorf("err = %v, want GROUP_EXISTS", err)
	}
}

// TestService_Create_EmptyName は空のグループ名が拒否されることを検証する。
func TestService_Create_EmptyName(t *testing.T) {
	svc := newTestService(&mockGroupRepo{}, &mockUserRepo{})

	_, err := svc.Create(context.Background(), "user-1", "   ")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("err = %v, want VALIDATION_FAILED", err)
	}
}

// TestService_Rename_NonAdminDenied は非adminのリネームが拒否されることを検証する。
func TestService_Rename_NonAdminDenied(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	_, err := svc.Rename(context.Background(), "member-1", "group-1", "NewName")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("err = %v, want FORBIDDEN", err)
	}
}

// TestService_Rename_DuplicateName は改名先が同じ作成者の別グループ名と
// 重複する場合に拒否されることを検証する。
func TestService_Rename_DuplicateName(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
		findByCreatorAndNameFn: func(ctx context.Context, creatorID, name string) (*model.Group, error) {
			return &model.Group{ID: "group-2", Name: name, CreatedBy: creatorID}, nil
		},
		renameFn: func(ctx context.Context, id, name string) error {
			t.Error("Rename should not reach the repository")
			return nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	_, err := svc.Rename(context.Background(), "admin-1", "group-1", "Ops")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeGroupExists {
		t.Errorf("err = %v, want GROUP_EXISTS", err)
	}
}

// TestService_Rename_SameNameAllowed は自分自身の現在名への改名が
// 重複扱いにならないことを検証する。
func TestService_Rename_SameNameAllowed(t *testing.T) {
	renamed := false
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
		findByCreatorAndNameFn: func(ctx context.Context, creatorID, name string) (*model.Group, error) {
			g := adminGroup()
			g.Name = name
			return g, nil
		},
		renameFn: func(ctx context.Context, id, name string) error {
			renamed = true
			return nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	view, err := svc.Rename(context.Background(), "admin-1", "group-1", "Eng")
	if err != nil {
		t.Fatalf("Rename returned error: %v", err)
	}
	if !renamed {
		t.Error("expected Rename to reach the repository")
	}
	if view.Name != "Eng" {
		t.Errorf("view.Name = %q, want %q", view.Name, "Eng")
	}
}

// TestService_Delete_AdminCascades はadminによる削除がタスク込み削除に
// 委譲されることを検証する。
func TestService_Delete_AdminCascades(t *testing.T) {
	deleteCalled := false
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
		deleteWithTasksFn: func(ctx context.Context, id string) error {
			deleteCalled = true
			if id != "group-1" {
				t.Errorf("id = %q, want %q", id, "group-1")
			}
			return nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	if err := svc.Delete(context.Background(), "admin-1", "group-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !deleteCalled {
		t.Error("expected DeleteWithTasks to be called")
	}
}

// TestService_Delete_NonAdminDenied は非adminの削除が拒否されることを検証する。
func TestService_Delete_NonAdminDenied(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	err := svc.Delete(context.Background(), "member-1", "group-1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("err = %v, want FORBIDDEN", err)
	}
}

// TestService_Delete_GroupNotFound は存在しないグループの削除が404相当になることを検証する。
func TestService_Delete_GroupNotFound(t *testing.T) {
	svc := newTestService(&mockGroupRepo{}, &mockUserRepo{})

	err := svc.Delete(context.Background(), "admin-1", "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeGroupNotFound {
		t.Errorf("err = %v, want GROUP_NOT_FOUND", err)
	}
}

// TestService_AddMember_Success はメール指定のメンバー追加を検証する。
// roleを省略した場合はmemberとして追加される。
func TestService_AddMember_Success(t *testing.T) {
	var added model.GroupMember
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
		addMemberFn: func(ctx context.Context, groupID string, member model.GroupMember) error {
			added = member
			return nil
		},
	}
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-new", Email: email}, nil
		},
	}
	svc := newTestService(repo, userRepo)

	view, err := svc.AddMember(context.Background(), "admin-1", "group-1", "new@example.com", "")
	if err != nil {
		t.Fatalf("AddMember returned error: %v", err)
	}

	if added.UserID != "user-new" {
		t.Errorf("added.UserID = %q, want %q", added.UserID, "user-new")
	}
	if added.Role != model.RoleMember {
		t.Errorf("added.Role = %q, want default %q", added.Role, model.RoleMember)
	}
	if len(view.Members) != 3 {
		t.Errorf("view has %d members, want 3", len(view.Members))
	}
}

// TestService_AddMember_UnknownEmail は未登録メールの追加が404相当になることを検証する。
func TestService_AddMember_UnknownEmail(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	_, err := svc.AddMember(context.Background(), "admin-1", "group-1", "missing@example.com", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("err = %v, want USER_NOT_FOUND", err)
	}
}

// TestService_AddMember_AlreadyMember は登録済みメンバーの重複追加が拒否されることを検証する。
func TestService_AddMember_AlreadyMember(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
	}
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "member-1", Email: email}, nil
		},
	}
	svc := newTestService(repo, userRepo)

	_, err := svc.AddMember(context.Background(), "admin-1", "group-1", "member@example.com", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAlreadyMember {
		t.Errorf("err = %v, want ALREADY_MEMBER", err)
	}
}

// TestService_AddMember_InvalidRole は未定義ロールでの追加が拒否されることを検証する。
func TestService_AddMember_InvalidRole(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	_, err := svc.AddMember(context.Background(), "admin-1", "group-1", "new@example.com", "owner")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("err = %v, want VALIDATION_FAILED", err)
	}
}

// TestService_RemoveMember_NotMember は非メンバーの削除が404相当になることを検証する。
func TestService_RemoveMember_NotMember(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	_, err := svc.RemoveMember(context.Background(), "admin-1", "group-1", "outsider")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMemberNotFound {
		t.Errorf("err = %v, want MEMBER_NOT_FOUND", err)
	}
}

// TestService_RemoveMember_Success はメンバー削除後のビューから
// 対象が消えることを検証する。
func TestService_RemoveMember_Success(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	view, err := svc.RemoveMember(context.Background(), "admin-1", "group-1", "member-1")
	if err != nil {
		t.Fatalf("RemoveMember returned error: %v", err)
	}
	if len(view.Members) != 1 {
		t.Fatalf("view has %d members, want 1", len(view.Members))
	}
	if view.Members[0].User.ID != "admin-1" {
		t.Errorf("remaining member = %q, want %q", view.Members[0].User.ID, "admin-1")
	}
}

// TestService_UpdateMember_RoleAndStatus は指定フィールドのみが更新されることを検証する。
func TestService_UpdateMember_RoleAndStatus(t *testing.T) {
	repo := &mockGroupRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			return adminGroup(), nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	role := model.RoleAdmin
	view, err := svc.UpdateMember(context.Background(), "admin-1", "group-1", "member-1", &role, nil)
	if err != nil {
		t.Fatalf("UpdateMember returned error: %v", err)
	}

	for _, m := range view.Members {
		if m.User.ID == "member-1" && m.Role != model.RoleAdmin {
			t.Errorf("member role = %q, want %q", m.Role, model.RoleAdmin)
		}
	}
}

// TestService_ListMyGroups_DisjointSets は作成グループと所属グループが
// 別々の集合で返ることを検証する。
func TestService_ListMyGroups_DisjointSets(t *testing.T) {
	repo := &mockGroupRepo{
		listByCreatorFn: func(ctx context.Context, userID string) ([]*model.Group, error) {
			return []*model.Group{{ID: "g-created", Name: "Mine", CreatedBy: userID,
				Members: []model.GroupMember{{UserID: userID, Role: model.RoleAdmin}}}}, nil
		},
		listByMemberFn: func(ctx context.Context, userID string) ([]*model.Group, error) {
			return []*model.Group{{ID: "g-member", Name: "Theirs", CreatedBy: "other",
				Members: []model.GroupMember{{UserID: userID, Role: model.RoleMember}}}}, nil
		},
	}
	svc := newTestService(repo, &mockUserRepo{})

	result, err := svc.ListMyGroups(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListMyGroups returned error: %v", err)
	}
	if len(result.CreatedGroups) != 1 || result.CreatedGroups[0].ID != "g-created" {
		t.Errorf("CreatedGroups = %+v, want [g-created]", result.CreatedGroups)
	}
	if len(result.MemberGroups) != 1 || result.MemberGroups[0].ID != "g-member" {
		t.Errorf("MemberGroups = %+v, want [g-member]", result.MemberGroups)
	}
}
