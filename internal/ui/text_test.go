package ui

import (
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// forceColor enables colour output for the duration of the test.
func forceColor(t *testing.T) {
	t.Helper()
	value, had := os.LookupEnv("NO_COLOR")
	original := color.NoColor
	os.Unsetenv("NO_COLOR")
	color.NoColor = false
	t.Cleanup(func() {
		if had {
			os.Setenv("NO_COLOR", value)
		}
		color.NoColor = original
	})
}

func TestFormatterWithColor(t *testing.T) {
	forceColor(t)

	result := Code.Sprint("backpack key list")
	assert.NotContains(t, result, "`", "no backticks when colour is on")
	assert.Contains(t, result, "\x1b[")

	result = Highlight.Sprintf("tone: %s", "friendly")
	assert.Contains(t, result, "tone: friendly")
	assert.NotEqual(t, '\'', rune(result[0]))
}

func TestFormatterWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code adds backticks", Code, "backpack key list", "`backpack key list`"},
		{"Path has no decoration", Path, "agent.lock", "agent.lock"},
		{"Flag has no decoration", Flag, "--yes", "--yes"},
		{"Success has no decoration", Success, "✓", "✓"},
		{"Error has no decoration", Error, "✗", "✗"},
		{"Warning has no decoration", Warning, "⚠", "⚠"},
		{"Info has no decoration", Info, "→", "→"},
		{"Highlight adds quotes", Highlight, "professional", "'professional'"},
		{"Secret adds dollar", Secret, "OPENAI_API_KEY", "$OPENAI_API_KEY"},
		{"Muted adds parentheses", Muted, "unknown", "(unknown)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.formatter.Sprint(tt.input))
		})
	}

	assert.Equal(t, "`backpack key add`", Code.Sprintf("backpack key %s", "add"))
	assert.Equal(t, "`backpack doctor`", Code.Sprint("backpack", " ", "doctor"))
}

func TestNoColor(t *testing.T) {
	t.Run("NO_COLOR set", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		assert.True(t, noColor())
	})

	t.Run("terminal without colour", func(t *testing.T) {
		forceColor(t)
		color.NoColor = true
		assert.True(t, noColor())
	})

	t.Run("colour enabled", func(t *testing.T) {
		forceColor(t)
		assert.False(t, noColor())
	})
}

func TestMark(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	assert.Equal(t, "✓", Mark(true))
	assert.Equal(t, "✗", Mark(false))
}

func TestEnsureNewline(t *testing.T) {
	assert.Equal(t, "\n", EnsureNewline(""))
	assert.Equal(t, "done\n", EnsureNewline("done"))
	assert.Equal(t, "done\n", EnsureNewline("done\n"))
}
