// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, api, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeArtifactNotFound  = "ARTIFACT_NOT_FOUND"
	ErrCodeOwnLikeForbidden  = "OWN_LIKE_FORBIDDEN"
	ErrCodeNotOwner          = "NOT_OWNER"
	ErrCodeInvalidImageURL   = "INVALID_IMAGE_URL"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeIdentityProvider  = "IDENTITY_PROVIDER_ERROR"
	ErrCodeRemoteAPIFailed   = "REMOTE_API_FAILED"
	ErrCodeInvalidArtifactID = "INVALID_ARTIFACT_ID"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication is required.",
		Category: "auth",
		Action:   "Please log in and try again.",
	}
}

// NewArtifactNotFoundError は遺物未検出エラーを生成する。
func NewArtifactNotFoundError(artifactID string) *APIError {
	return &APIError{
		Code:     ErrCodeArtifactNotFound,
		Message:  fmt.Sprintf("Artifact not found: %s", artifactID),
		Category: "api",
		Action:   "Check the artifact ID and try again.",
	}
}

// NewOwnLikeForbiddenError は自分の投稿へのいいね禁止エラーを生成する。
// リモート呼び出しの前にクライアント側（本サーバー）で検出する。
func NewOwnLikeForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnLikeForbidden,
		Message:  "You cannot like your own artifact.",
		Category: "validation",
		Action:   "Explore other contributors' artifacts instead.",
	}
}

// NewNotOwnerError は所有者以外による編集・削除操作のエラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "Only the owner of this artifact can perform this action.",
		Category: "auth",
		Action:   "You can edit or delete only artifacts you submitted.",
	}
}

// NewInvalidImageURLError は無効な画像URLエラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("Invalid image URL: %s", reason),
		Category: "validation",
		Action:   "Enter a valid public URL starting with http:// or https://.",
	}
}

// NewValidationFailedError はフォームバリデーション失敗エラーを生成する。
func NewValidationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "Some fields are missing or invalid.",
		Category: "validation",
		Action:   "Correct the highlighted fields and submit again.",
	}
}

// NewIdentityProviderError はIDプロバイダー由来のエラーを生成する。
// プロバイダーのメッセージはそのままユーザーに提示する。
func NewIdentityProviderError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeIdentityProvider,
		Message:  message,
		Category: "auth",
		Action:   "Check your credentials and try again.",
	}
}

// NewRemoteAPIError はリモートアーティファクトAPI呼び出し失敗のエラーを生成する。
// 自動リトライは行わず、ユーザーの再操作に委ねる。
func NewRemoteAPIError(statusCode int) *APIError {
	return &APIError{
		Code:     ErrCodeRemoteAPIFailed,
		Message:  fmt.Sprintf("The artifact service returned an error (status %d).", statusCode),
		Category: "api",
		Action:   "Please try the action again.",
	}
}
