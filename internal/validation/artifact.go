// Package validation はフォーム入力の同期バリデーションを提供する。
//
// バリデーターは送信時に1回だけ実行され、フィールド名をキーとする
// エラーマップを返す。1つでもルールに違反した場合、ネットワーク呼び出しは
// 発行されない。
package validation

import (
	"net/url"
	"strings"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// descriptionMinLength は説明文の最小文字数。
const descriptionMinLength = 20

// ArtifactForm は遺物登録・更新フォームの入力値。
type ArtifactForm struct {
	Name              string
	ImageURL          string
	Type              string
	HistoricalContext string
	Description       string
	CreatedAt         string
	DiscoveredAt      string
	DiscoveredBy      string
	PresentLocation   string
}

// ValidateArtifactForm はフォームをフィールドごとに検証し、
// フィールド名をキーとするエラーメッセージのマップを返す。
// すべてのフィールドが有効な場合は空のマップを返す。
func ValidateArtifactForm(form ArtifactForm) map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(form.Name) == "" {
		errs["name"] = "Artifact name is required"
	}

	if strings.TrimSpace(form.ImageURL) == "" {
		errs["imageUrl"] = "Image URL is required"
	} else if !isValidURL(form.ImageURL) {
		errs["imageUrl"] = "Please enter a valid URL"
	}

	if strings.TrimSpace(form.Type) == "" {
		errs["type"] = "Artifact type is required"
	} else if !model.IsValidArtifactType(form.Type) {
		errs["type"] = "Please select a valid artifact type"
	}

	if strings.TrimSpace(form.HistoricalContext) == "" {
		errs["historicalContext"] = "Historical context is required"
	}

	if strings.TrimSpace(form.Description) == "" {
		errs["description"] = "Description is required"
	} else if len(form.Description) < descriptionMinLength {
		errs["description"] = "Description must be at least 20 characters"
	}

	if strings.TrimSpace(form.CreatedAt) == "" {
		errs["createdAt"] = "Creation date is required"
	}

	if strings.TrimSpace(form.DiscoveredAt) == "" {
		errs["discoveredAt"] = "Discovery date is required"
	}

	if strings.TrimSpace(form.DiscoveredBy) == "" {
		errs["discoveredBy"] = "Discoverer name is required"
	}

	if strings.TrimSpace(form.PresentLocation) == "" {
		errs["presentLocation"] = "Present location is required"
	}

	return errs
}

// isValidURL はURLとして解釈可能でスキームとホストを持つかを検証する。
func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
