package notes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"atx heading", "# Trip plan\n\n- pack", "Trip plan"},
		{"second level heading", "intro line\n\n## Refs\n- a", "Refs"},
		{"inline markup", "# The *big* `idea`", "The big idea"},
		{"no heading uses first line", "\n\n  buy milk  \nthen eggs", "buy milk"},
		{"empty", "", "Untitled"},
		{"blank lines only", "\n \n\t\n", "Untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.content))
		})
	}
}

func TestTitle_Truncates(t *testing.T) {
	got := Title("# " + strings.Repeat("word ", 40))
	assert.LessOrEqual(t, len([]rune(got)), maxTitleLength)
	assert.True(t, strings.HasSuffix(got, "…"))
}
