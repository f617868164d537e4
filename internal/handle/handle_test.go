package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple name", "Website Url", "website-url"},
		{"already normalized", "web-page", "web-page"},
		{"whitespace run", "Web \t\n page", "web-page"},
		{"strips punctuation", "Property (name)!", "property-name"},
		{"punctuation between spaces", "a $ b", "a-b"},
		{"collapses hyphens", "a---b", "a-b"},
		{"trims hyphens", "--Html--", "html"},
		{"trims whitespace", "  Selector  ", "selector"},
		{"digits kept", "Step 2 Output", "step-2-output"},
		{"non-ascii dropped", "Café Menu", "caf-menu"},
		{"only symbols", "$$$", ""},
		{"empty", "", ""},
		{"underscore dropped", "target_url", "targeturl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Website Url",
		"  --Mixed  CASE__and   symbols!! -- ",
		"a - - b",
		"Ünïcödé Spaces here",
		"---",
		"",
		"Extracted text",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("Web page", "web-page"))
	assert.True(t, Equal("Extracted  Text", "extracted-text"))
	assert.False(t, Equal("Html", "Web page"))
}
