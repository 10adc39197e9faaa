package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequestSchema(t *testing.T) {
	v := MustChatRequestValidator()

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantField string
	}{
		{"empty object", `{}`, true, ""},
		{"full request", `{"messages":[{"role":"user","content":"hi"}],"context":"page","strict":true}`, true, ""},
		{"unknown role", `{"messages":[{"role":"tool","content":"x"}]}`, false, "messages.0.role"},
		{"content not string", `{"messages":[{"role":"user","content":5}]}`, false, "messages.0.content"},
		{"messages not array", `{"messages":"hello"}`, false, "messages"},
		{"context not string", `{"context":{"a":1}}`, false, "context"},
		{"strict not bool", `{"strict":"yes"}`, false, "strict"},
		{"missing content", `{"messages":[{"role":"user"}]}`, false, "messages.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateBytes([]byte(tt.body))
			assert.Equal(t, tt.wantValid, res.Valid, res.Summary())
			if !tt.wantValid {
				require.NotEmpty(t, res.Errors)
				assert.Equal(t, tt.wantField, res.Errors[0].Field)
				assert.Contains(t, res.Summary(), tt.wantField)
			}
		})
	}
}

func TestValidateBytes_NotJSON(t *testing.T) {
	res := MustChatRequestValidator().ValidateBytes([]byte(`{"messages":`))
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "INVALID_JSON", res.Errors[0].Code)
}

func TestNewValidator_BadSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`)
	assert.Error(t, err)
}
