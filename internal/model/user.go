package model

import "time"

// DefaultUserStatus は新規ユーザーのステータス文の初期値。
const DefaultUserStatus = "Hey there! I am using Task Manager"

// User はサービス利用ユーザーを表す。
// PasswordHashは読み取り系のプロジェクションには決して含めない。
type User struct {
	ID           string
	Name         string
	Email        string // 小文字に正規化して保存する
	PasswordHash string
	ProfilePic   string // アップロード済み画像のファイル名参照
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はAPIレスポンスに載せるユーザーの公開プロジェクション。
type PublicUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic,omitempty"`
	Status     string `json:"status,omitempty"`
}

// Public はパスワードハッシュを除いた公開プロジェクションを返す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Status:     u.Status,
	}
}

// UserRef はグループ・タスクのレスポンスに埋め込むユーザーのname/emailプロジェクション。
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
