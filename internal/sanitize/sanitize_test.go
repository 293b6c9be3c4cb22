package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain value untouched", "session-abc-123", "session-abc-123"},
		{"sql keyword removed", "DROP TABLE products", "TABLE products"},
		{"keyword case insensitive", "select name from x", "name from x"},
		{"quote and semicolon removed", "abc'; DELETE", "abc"},
		{"percent removed", "50% off", "50 off"},
		{"comment dashes removed", "value--comment", "valuecomment"},
		{"asterisk removed", "a*b", "ab"},
		{"whitespace trimmed", "  hello  ", "hello"},
		{"empty stays empty", "", ""},
		{"keyword inside word kept", "selection", "selection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Clean(tt.want), Strip(tt.input))
		})
	}
}

func TestStrip_ClassicInjection(t *testing.T) {
	got := Strip("'; DROP TABLE orders; --")
	assert.NotContains(t, got.String(), "DROP")
	assert.NotContains(t, got.String(), "'")
	assert.NotContains(t, got.String(), ";")
}
