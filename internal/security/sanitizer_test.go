package security

import (
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  Tiger II  ", "Tiger II"},
		{"removes null bytes", "Tiger\x00 II", "Tiger II"},
		{"plain text untouched", "Leopard 1", "Leopard 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeString(tt.input); got != tt.want {
				t.Errorf("SanitizeString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeString_Truncates(t *testing.T) {
	long := strings.Repeat("a", 2000)
	if got := SanitizeString(long); len(got) != 1000 {
		t.Errorf("len = %d, want 1000", len(got))
	}
}

func TestSanitizeHTML(t *testing.T) {
	input := `<script>alert("x")</script>Tiger II`
	if got := SanitizeHTML(input); strings.Contains(got, "<script>") {
		t.Errorf("SanitizeHTML left script tag: %q", got)
	}
}

func TestSanitizeName(t *testing.T) {
	if got := SanitizeName("  <b>Team Alpha</b>  "); got != "Team Alpha" {
		t.Errorf("SanitizeName() = %q, want %q", got, "Team Alpha")
	}

	long := strings.Repeat("n", 80)
	if got := SanitizeName(long); len(got) != 50 {
		t.Errorf("name length = %d, want 50", len(got))
	}
}
