package security

import "testing"

func TestSanitize_RemovesAllTags(t *testing.T) {
	s := NewFeedbackSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Great pace, keep it up", "Great pace, keep it up"},
		{"script tag", `<script>alert(1)</script>needs work`, "needs work"},
		{"nested tags", "<p>try <strong>harder</strong></p>", "try harder"},
		{"event handler", `<img src=x onerror=alert(1)>slow down`, "slow down"},
		{"empty input", "", ""},
		{"whitespace trimmed", "  good run  ", "good run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewFeedbackSanitizer()

	input := `<b>bold</b> feedback`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)

	if once != twice {
		t.Errorf("sanitize should be idempotent: first=%q second=%q", once, twice)
	}
}
