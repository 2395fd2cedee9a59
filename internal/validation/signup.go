package validation

import (
	"strings"
	"unicode"
)

// passwordMinLength はパスワードの最小文字数。
const passwordMinLength = 6

// SignUpForm はアカウント作成フォームの入力値。
type SignUpForm struct {
	Username string
	Email    string
	PhotoURL string
	Password string
}

// ValidatePassword はパスワードポリシーを固定順で検証する。
// 長さ → 小文字 → 大文字 → 数字 の順に判定し、最初に違反した
// ルールのメッセージのみを返す（全違反の集約はしない）。
// 有効な場合は空文字列を返す。
func ValidatePassword(password string) string {
	if len(password) < passwordMinLength {
		return "Password Must be 6 characters"
	}

	hasLower := false
	hasUpper := false
	hasDigit := false
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLower {
		return "Password must have a small letter!"
	}
	if !hasUpper {
		return "Password must have an uppercase letter!"
	}
	if !hasDigit {
		return "Password must have a number!"
	}

	return ""
}

// ValidateSignUpForm はアカウント作成フォームを検証し、
// フィールド名をキーとするエラーメッセージのマップを返す。
func ValidateSignUpForm(form SignUpForm) map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(form.Username) == "" {
		errs["username"] = "Name is required"
	}

	if strings.TrimSpace(form.Email) == "" {
		errs["email"] = "Email is required"
	} else if !strings.Contains(form.Email, "@") {
		errs["email"] = "Please enter a valid email address"
	}

	if form.PhotoURL != "" && !isValidURL(form.PhotoURL) {
		errs["photoURL"] = "Please enter a valid URL"
	}

	if msg := ValidatePassword(form.Password); msg != "" {
		errs["password"] = msg
	}

	return errs
}
