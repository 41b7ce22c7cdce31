package model

import "time"

// メンバーのロール。
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// IsValidRole はロール値が定義済みかどうかを返す。
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

// Group はグループ集約を表す。
// メンバーシップリストはグループが排他的に所有し、常にグループと一緒に読み書きする。
type Group struct {
	ID        string
	Name      string
	CreatedBy string
	Members   []GroupMember
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupMember はグループ内のメンバーシップエントリを表す。
type GroupMember struct {
	UserID   string
	Role     string // admin | member
	Status   string // 任意のステータス文
	JoinedAt time.Time
}

// FindMember は指定ユーザーのメンバーシップエントリを返す。
// メンバーでない場合はnilを返す。
func (g *Group) FindMember(userID string) *GroupMember {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// IsMember は指定ユーザーが現時点でメンバーかどうかを返す。
func (g *Group) IsMember(userID string) bool {
	return g.FindMember(userID) != nil
}

// IsAdmin は指定ユーザーがrole=adminのメンバーかどうかを返す。
func (g *Group) IsAdmin(userID string) bool {
	m := g.FindMember(userID)
	return m != nil && m.Role == RoleAdmin
}

// MemberView はname/emailを解決したメンバーシップエントリのプロジェクション。
type MemberView struct {
	User     UserRef   `json:"user"`
	Role     string    `json:"role"`
	Status   string    `json:"status,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// GroupView は作成者とメンバーを解決したグループのプロジェクション。
type GroupView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedBy UserRef      `json:"createdBy"`
	Members   []MemberView `json:"members"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
