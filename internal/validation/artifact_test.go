package validation

import (
	"strings"
	"testing"
)

func validArtifactForm() ArtifactForm {
	return ArtifactForm{
		Name:              "Antikythera Mechanism",
		ImageURL:          "https://example.com/antikythera.jpg",
		Type:              "Tools",
		HistoricalContext: "Hellenistic-period astronomical calculator",
		Description:       strings.Repeat("a", 20),
		CreatedAt:         "100 BC",
		DiscoveredAt:      "1901",
		DiscoveredBy:      "Valerios Stais",
		PresentLocation:   "National Archaeological Museum, Athens",
	}
}

// 有効なフォームはエラーなしで通過することを検証
func TestValidateArtifactForm_Valid(t *testing.T) {
	errs := ValidateArtifactForm(validArtifactForm())
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

// 必須フィールドの欠落がフィールドごとのメッセージになることを検証
func TestValidateArtifactForm_RequiredFields(t *testing.T) {
	errs := ValidateArtifactForm(ArtifactForm{})

	want := map[string]string{
		"name":              "Artifact name is required",
		"imageUrl":          "Image URL is required",
		"type":              "Artifact type is required",
		"historicalContext": "Historical context is required",
		"description":       "Description is required",
		"createdAt":         "Creation date is required",
		"discoveredAt":      "Discovery date is required",
		"discoveredBy":      "Discoverer name is required",
		"presentLocation":   "Present location is required",
	}

	for field, msg := range want {
		if errs[field] != msg {
			t.Errorf("errs[%q] = %q, want %q", field, errs[field], msg)
		}
	}
}

// 説明文の19/20文字境界を検証
func TestValidateArtifactForm_DescriptionBoundary(t *testing.T) {
	form := validArtifactForm()

	form.Description = strings.Repeat("x", 19)
	errs := ValidateArtifactForm(form)
	if errs["description"] != "Description must be at least 20 characters" {
		t.Errorf("19 chars: errs[description] = %q, want length error", errs["description"])
	}

	form.Description = strings.Repeat("x", 20)
	errs = ValidateArtifactForm(form)
	if _, ok := errs["description"]; ok {
		t.Errorf("20 chars: unexpected error %q", errs["description"])
	}
}

// 画像URLの形式検証
func TestValidateArtifactForm_ImageURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"httpsのURL", "https://example.com/a.jpg", ""},
		{"httpのURL", "http://example.com/a.jpg", ""},
		{"スキームなし", "example.com/a.jpg", "Please enter a valid URL"},
		{"ftpスキーム", "ftp://example.com/a.jpg", "Please enter a valid URL"},
		{"ホストなし", "https://", "Please enter a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validArtifactForm()
			form.ImageURL = tt.url
			errs := ValidateArtifactForm(form)
			if errs["imageUrl"] != tt.wantErr {
				t.Errorf("errs[imageUrl] = %q, want %q", errs["imageUrl"], tt.wantErr)
			}
		})
	}
}

// 固定セット外の種別が拒否されることを検証
func TestValidateArtifactForm_UnknownType(t *testing.T) {
	form := validArtifactForm()
	form.Type = "Spacecraft"

	errs := ValidateArtifactForm(form)
	if errs["type"] != "Please select a valid artifact type" {
		t.Errorf("errs[type] = %q, want type error", errs["type"])
	}
}
