package logger

import (
	"strings"
	"testing"
)

func TestRedactorPatterns(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{"telegram bot token", "using 123456789:AAbbCCddEEffGGhhIIjjKKllMMnnOOppQQ", "AAbbCC"},
		{"bearer token", "Authorization: Bearer abc.def.ghi", "abc.def.ghi"},
		{"password assignment", `password="hunter22"`, "hunter22"},
		{"secret assignment", `secret: supersecretvalue`, "supersecretvalue"},
		{"phone number", "caller +6281234567890 waiting", "+6281234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Redact(tt.input)
			if strings.Contains(out, tt.leak) {
				t.Errorf("Redact(%q) = %q, still contains %q", tt.input, out, tt.leak)
			}
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("Redact(%q) = %q, missing redaction marker", tt.input, out)
			}
		})
	}
}

func TestRedactorLeavesPlainTextAlone(t *testing.T) {
	r := NewRedactor()

	input := "sender 628123 moved from queued to active"
	if out := r.Redact(input); out != input {
		t.Errorf("plain text was altered: %q", out)
	}
}

func TestRedactorAddPattern(t *testing.T) {
	r := NewRedactor()

	if err := r.AddPattern(`ticket-\d+`); err != nil {
		t.Fatalf("AddPattern failed: %v", err)
	}
	if out := r.Redact("see ticket-42"); strings.Contains(out, "ticket-42") {
		t.Errorf("custom pattern not applied: %q", out)
	}

	if err := r.AddPattern(`(unclosed`); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
