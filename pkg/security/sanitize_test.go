package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace trimmed", "  Your KYC will expire today  ", "Your KYC will expire today"},
		{"null bytes removed", "lottery\x00winner", "lotterywinner"},
		{"control characters removed", "urgent\x01\x02 action", "urgent action"},
		{"newlines and tabs preserved", "line one\n\tline two", "line one\n\tline two"},
		{"unicode preserved", "आपका खाता बंद हो जाएगा", "आपका खाता बंद हो जाएगा"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeString(tt.input))
		})
	}
}

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already clean", "+919876543210", "+919876543210"},
		{"spaces and dashes", "+91 98765-43210", "+919876543210"},
		{"parentheses", "(140) 2345678", "1402345678"},
		{"letters stripped", "+91call98765", "+9198765"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePhone(tt.input))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "call-recording.mp3", "call-recording.mp3"},
		{"spaces to underscores", "fraud sms screenshot.png", "fraud_sms_screenshot.png"},
		{"path separators stripped", "evidence/uploads/sms.png", "evidenceuploadssms.png"},
		{"traversal removed", "../../etc/passwd", "etcpasswd"},
		{"nested traversal removed", "....//payload.pdf", "payload.pdf"},
		{"special characters replaced", "scam?report*2024.pdf", "scam_report_2024.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".png"
	got := SanitizeFilename(long)
	assert.Len(t, []rune(got), 255)
}
