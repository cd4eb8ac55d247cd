package security

import (
	"strings"
	"testing"
)

func TestSanitizeLogInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Clean input",
			input:    "normal log message",
			expected: "normal log message",
		},
		{
			name:     "Single newline",
			input:    "line1\nline2",
			expected: "line1line2",
		},
		{
			name:     "Single carriage return",
			input:    "line1\rline2",
			expected: "line1line2",
		},
		{
			name:     "CRLF sequence",
			input:    "line1\r\nline2",
			expected: "line1line2",
		},
		{
			name:     "Forged log entry",
			input:    "base\n[INFO] Model download complete",
			expected: "base[INFO] Model download complete",
		},
		{
			name:     "Empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeLogInput(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeLogInput(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidateModelName(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		wantErr bool
	}{
		{"Simple name", "base", false},
		{"Dotted variant", "large-v3", false},
		{"English variant", "base.en", false},
		{"Underscore", "my_model", false},
		{"Empty", "", true},
		{"Path traversal", "../etc/passwd", true},
		{"Forward slash", "models/base", true},
		{"Backslash", "models\\base", true},
		{"Parent reference", "base..en", true},
		{"Shell metacharacters", "base;rm -rf", true},
		{"Spaces", "base en", true},
		{"Null byte", "base\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModelName(tt.model)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModelName(%q) error = %v, wantErr %v", tt.model, err, tt.wantErr)
			}
		})
	}
}

func TestValidateModelName_LongName(t *testing.T) {
	long := strings.Repeat("a", 256)
	if err := ValidateModelName(long); err != nil {
		t.Errorf("long but well-formed name should validate: %v", err)
	}
}
