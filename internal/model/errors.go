// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, group, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodePasswordPolicy     = "PASSWORD_POLICY_VIOLATION"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeGroupNotFound      = "GROUP_NOT_FOUND"
	ErrCodeTaskNotFound       = "TASK_NOT_FOUND"
	ErrCodeMemberNotFound     = "MEMBER_NOT_FOUND"
	ErrCodeEmailInUse         = "EMAIL_IN_USE"
	ErrCodeGroupExists        = "GROUP_EXISTS"
	ErrCodeAlreadyMember      = "ALREADY_MEMBER"
	ErrCodeActiveTaskExists   = "ACTIVE_TASK_EXISTS"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Check the request body and try again.",
	}
}

// NewPasswordPolicyError はパスワードポリシー違反エラーを生成する。
// messageには違反したルールをすべて列挙した文字列を渡す。
func NewPasswordPolicyError(message string) *APIError {
	return &APIError{
		Code:     ErrCodePasswordPolicy,
		Message:  message,
		Category: "validation",
		Action:   "Choose a password that satisfies all listed rules.",
	}
}

// NewUnauthenticatedError は認証エラーを生成する。
// reasonはトークン検証の失敗理由（"No authentication token provided"等）。
func NewUnauthenticatedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  reason,
		Category: "auth",
		Action:   "Log in and retry with a valid token.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザー列挙を防ぐため、メール未登録とパスワード不一致で同一メッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "Check your email address and password.",
	}
}

// NewForbiddenError は認可エラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
		Action:   "Ask a group admin to perform this action.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Check the email address or user ID.",
	}
}

// NewGroupNotFoundError はグループが見つからない場合のエラーを生成する。
func NewGroupNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeGroupNotFound,
		Message:  "Group not found.",
		Category: "group",
		Action:   "Check the group ID.",
	}
}

// NewTaskNotFoundError はタスクが見つからない場合のエラーを生成する。
func NewTaskNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  "Task not found.",
		Category: "task",
		Action:   "Check the task ID.",
	}
}

// NewMemberNotFoundError は対象ユーザーがグループのメンバーでない場合のエラーを生成する。
func NewMemberNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeMemberNotFound,
		Message:  "User not in group.",
		Category: "group",
		Action:   "Check the member list of the group.",
	}
}

// NewEmailInUseError はメールアドレスが登録済みの場合のエラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailInUse,
		Message:  "Email already in use",
		Category: "validation",
		Action:   "Use a different email address or log in.",
	}
}

// NewGroupExistsError は同じ作成者の同名グループが既に存在する場合のエラーを生成する。
func NewGroupExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeGroupExists,
		Message:  "Group with the same name already exists.",
		Category: "group",
		Action:   "Choose a different group name.",
	}
}

// NewAlreadyMemberError は対象ユーザーが既にメンバーの場合のエラーを生成する。
func NewAlreadyMemberError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyMember,
		Message:  "User already in group.",
		Category: "group",
		Action:   "Check the member list of the group.",
	}
}

// NewActiveTaskExistsError は担当者が同一グループ内に未完了タスクを既に持つ場合のエラーを生成する。
func NewActiveTaskExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeActiveTaskExists,
		Message:  "Assignee already has an active task in this group.",
		Category: "task",
		Action:   "Complete the existing task before assigning a new one.",
	}
}
