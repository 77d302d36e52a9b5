package inject

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalConsent(t *testing.T) {
	var prompts []string
	answer := true
	consent := TerminalConsent(func(prompt string) (bool, error) {
		prompts = append(prompts, prompt)
		return answer, nil
	})

	decision, err := consent("OPENAI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, Allow, decision)

	answer = false
	decision, err = consent("STRIPE_KEY")
	require.NoError(t, err)
	assert.Equal(t, Deny, decision)

	assert.Equal(t, []string{
		"Allow the agent to access OPENAI_API_KEY?",
		"Allow the agent to access STRIPE_KEY?",
	}, prompts)
}

func TestTerminalConsentErrorDenies(t *testing.T) {
	consent := TerminalConsent(func(string) (bool, error) {
		return true, errors.New("no tty")
	})

	decision, err := consent("OPENAI_API_KEY")
	assert.Error(t, err)
	assert.Equal(t, Deny, decision)
}

func TestAllowAll(t *testing.T) {
	decision, err := AllowAll("ANY")
	require.NoError(t, err)
	assert.Equal(t, Allow, decision)
}
