package textutil

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bom and collapsed whitespace",
			input: "\ufeffRésumé   café\r\n\r\n\r\na",
			want:  "Résumé café\n\na",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "crlf to lf",
			input: "line one\r\nline two",
			want:  "line one\nline two",
		},
		{
			name:  "bare cr to lf",
			input: "line one\rline two",
			want:  "line one\nline two",
		},
		{
			name:  "tabs collapse to single space",
			input: "a\t\tb \t c",
			want:  "a b c",
		},
		{
			name:  "double newline preserved",
			input: "para one\n\npara two",
			want:  "para one\n\npara two",
		},
		{
			name:  "replacement character stripped",
			input: "five\ufffd second",
			want:  "five second",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  \n penalty \n ",
			want:  "penalty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"\ufeffArticle 33.3\r\n\r\n\r\nTrack limits",
		"plain text",
		"a\t b\n\n\n\nc",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
		if strings.ContainsRune(twice, '\ufeff') {
			t.Errorf("BOM survived normalization of %q", in)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("\ufeff secret-key \n"); got != "secret-key" {
		t.Errorf("Sanitize = %q, want %q", got, "secret-key")
	}
}
