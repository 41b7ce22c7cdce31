// Package password はパスワードポリシーの検証とハッシュ化を提供する。
package password

import (
	"strings"
	"unicode"

	"github.com/hitoshi/taskly/internal/model"
)

// MinLength はパスワードの最小文字数。
const MinLength = 8

// significantNameLength は所有者名の断片チェックの対象となる最小文字数。
// これより短い名前の断片は偶然の一致が多すぎるため無視する。
const significantNameLength = 4

// weakPasswords は部分文字列として拒否する既知の弱いパスワードの固定リスト。
var weakPasswords = []string{"password", "123456", "qwerty", "letmein"}

// Validate はパスワードがポリシーを満たすか検証する。
// ownerNameが空でない場合、名前の有意な断片（4文字以上）を含むパスワードも拒否する。
// 違反時は最初の違反だけでなく、失敗したルールをすべて列挙した
// model.APIErrorを返す。
func Validate(password, ownerName string) error {
	var errs []string

	if len(password) < MinLength {
		errs = append(errs, "be at least 8 characters long")
	}

	var hasDigit, hasSpecial, hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			hasSpecial = true
		}
	}

	if !hasDigit {
		errs = append(errs, "contain at least one number")
	}
	if !hasSpecial {
		errs = append(errs, "contain at least one special character")
	}
	if !hasUpper {
		errs = append(errs, "contain at least one uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "contain at least one lowercase letter")
	}

	lower := strings.ToLower(password)

	for _, weak := range weakPasswords {
		if strings.Contains(lower, weak) {
			errs = append(errs, "avoid common weak passwords")
			break
		}
	}

	if containsNameFragment(lower, ownerName) {
		errs = append(errs, "not contain your name or parts of your name")
	}

	if len(errs) > 0 {
		return model.NewPasswordPolicyError("Password must: " + strings.Join(errs, ", "))
	}

	return nil
}

// containsNameFragment はパスワードが所有者名の有意な断片（4文字以上の連続部分）を
// 含むかを返す。名前を空白で分割し、各部分の4文字窓を大文字小文字を無視して照合する。
func containsNameFragment(passwordLower, ownerName string) bool {
	name := strings.TrimSpace(ownerName)
	if name == "" {
		return false
	}

	for _, part := range strings.Fields(strings.ToLower(name)) {
		if len(part) < significantNameLength {
			continue
		}
		for i := 0; i+significantNameLength <= len(part); i++ {
			if strings.Contains(passwordLower, part[i:i+significantNameLength]) {
				return true
			}
		}
	}
	return false
}
