// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は利用者が入力した遺物の自由記述テキスト
// （説明文・歴史的背景）をサニタイズし、ビューへ返す前にXSSの
// リスクを除去する。bluemondayの許可リストベースのポリシーを使用する。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// 遺物の登録・更新時および詳細ビューの応答時に使用される。
type ContentSanitizerService interface {
	// SanitizeText は自由記述フィールドからすべてのHTMLタグを除去し、
	// プレーンテキストのみを返す。遺物の説明文はマークアップを
	// 持たない想定のため、StrictPolicy相当の全除去を行う。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 遺物の自由記述フィールドはHTMLを許可しないため、全タグを
// 除去するStrictPolicyを使用する。script、iframe、style、
// on*イベント属性はすべて除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は自由記述テキストをサニタイズして返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
