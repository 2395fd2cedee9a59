package security

import "testing"

// SanitizeTextがタグを全て除去しテキストを残すことを検証
func TestContentSanitizer_SanitizeText(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキスト", "A bronze coin from the Roman era.", "A bronze coin from the Roman era."},
		{"scriptタグ除去", `Found in 1901<script>alert("xss")</script>`, "Found in 1901"},
		{"タグ除去でテキスト保持", "<p>Hellenistic <strong>calculator</strong></p>", "Hellenistic calculator"},
		{"イベント属性付きタグ", `<img src="x" onerror="alert(1)">ancient pottery`, "ancient pottery"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// 同一入力に対して冪等であることを検証
func TestContentSanitizer_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<b>Rosetta</b> Stone<script>x()</script>`
	once := s.SanitizeText(input)
	twice := s.SanitizeText(once)

	if once != twice {
		t.Errorf("sanitization is not idempotent: %q != %q", once, twice)
	}
}
