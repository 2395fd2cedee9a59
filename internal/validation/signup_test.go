package validation

import "testing"

// パスワードポリシーが固定順で最初の違反のみを返すことを検証
func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"短すぎる", "Ab1", "Password Must be 6 characters"},
		{"小文字と数字のみ", "abc123", "Password must have an uppercase letter!"},
		{"大文字なし数字なし", "abcdef", "Password must have an uppercase letter!"},
		{"大文字のみ", "ABCDEF", "Password must have a small letter!"},
		{"数字なし", "Abcdef", "Password must have a number!"},
		{"有効", "Abcdef1", ""},
		{"長さ不足が最優先", "A1b", "Password Must be 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePassword(tt.password); got != tt.want {
				t.Errorf("ValidatePassword(%q) = %q, want %q", tt.password, got, tt.want)
			}
		})
	}
}

// サインアップフォーム全体の検証
func TestValidateSignUpForm(t *testing.T) {
	form := SignUpForm{
		Username: "Tanvir",
		Email:    "tanvir@example.com",
		PhotoURL: "https://example.com/me.png",
		Password: "Abcdef1",
	}

	if errs := ValidateSignUpForm(form); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

// 欠落フィールドと不正パスワードのエラーマップを検証
func TestValidateSignUpForm_Errors(t *testing.T) {
	form := SignUpForm{
		Username: "",
		Email:    "not-an-email",
		Password: "abcdef",
	}

	errs := ValidateSignUpForm(form)

	if errs["username"] != "Name is required" {
		t.Errorf("errs[username] = %q", errs["username"])
	}
	if errs["email"] != "Please enter a valid email address" {
		t.Errorf("errs[email] = %q", errs["email"])
	}
	if errs["password"] != "Password must have an uppercase letter!" {
		t.Errorf("errs[password] = %q", errs["password"])
	}
}

// 写真URLは任意だが指定された場合は形式検証されることを検証
func TestValidateSignUpForm_OptionalPhotoURL(t *testing.T) {
	form := SignUpForm{
		Username: "Tanvir",
		Email:    "tanvir@example.com",
		Password: "Abcdef1",
	}

	if errs := ValidateSignUpForm(form); len(errs) != 0 {
		t.Errorf("empty photoURL should pass, got %v", errs)
	}

	form.PhotoURL = "not a url"
	errs := ValidateSignUpForm(form)
	if errs["photoURL"] != "Please enter a valid URL" {
		t.Errorf("errs[photoURL] = %q", errs["photoURL"])
	}
}
