package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get("extraction.json", "resume-skills")
	require.NoError(t, err)
	assert.Contains(t, prompt, "technical skills")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt file nonexistent.json not found")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get("extraction.json", "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet("extraction.json", "rules"))
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		expected string
	}{
		{"substitutes", "Hello {{.Name}}, welcome to {{.Company}}!", map[string]string{"Name": "Alice", "Company": "Acme"}, "Hello Alice, welcome to Acme!"},
		{"no placeholders", "No placeholders here", map[string]string{"Key": "Value"}, "No placeholders here"},
		{"missing value kept", "Hello {{.Name}}", map[string]string{}, "Hello {{.Name}}"},
		{"value not re-expanded", "{{.A}}", map[string]string{"A": "{{.B}}", "B": "x"}, "{{.B}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.template, tt.data))
		})
	}
}

func TestList(t *testing.T) {
	keys, err := List("extraction.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"input", "resume-skills", "rules"}, keys)
}
