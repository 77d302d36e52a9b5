package inject

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/backpack/internal/container"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/vault"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLock(t *testing.T, names ...string) *container.Lock {
	t.Helper()
	lock := container.New(filepath.Join(t.TempDir(), container.DefaultFileName), []byte("master"))
	personality := container.Personality{
		container.PersonalitySystemPrompt: "You are a financial analyst.",
		container.PersonalityTone:         "formal",
	}
	require.NoError(t, lock.Create(container.CredentialsFromNames(names...), personality, nil))
	return lock
}

func newVault(t *testing.T, secrets map[string]string) *vault.Vault {
	t.Helper()
	v := vault.New(vault.NewKeyringBackend(keyring.NewArrayKeyring(nil), vault.DefaultService))
	for name, value := range secrets {
		require.NoError(t, v.Store(name, value))
	}
	return v
}

// recordingConsent answers from decisions and records the order it was asked in.
func recordingConsent(decisions map[string]Decision, asked *[]string) ConsentFunc {
	return func(name string) (Decision, error) {
		*asked = append(*asked, name)
		return decisions[name], nil
	}
}

func TestInjectPartialWhenSecretMissing(t *testing.T) {
	lock := newLock(t, "A", "B")
	v := newVault(t, map[string]string{"A": "value-a"})

	var asked []string
	result, err := Inject(lock, v, recordingConsent(map[string]Decision{"A": Allow}, &asked))
	require.NoError(t, err)

	assert.Equal(t, "value-a", result.Env["A"])
	assert.NotContains(t, result.Env, "B")
	assert.Equal(t, "You are a financial analyst.", result.Env[EnvSystemPrompt])
	assert.Equal(t, "formal", result.Env[EnvTone])
	assert.Equal(t, []string{"A"}, result.Injected)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "B", result.Warnings[0].Name)
	assert.Equal(t, WarnNotFound, result.Warnings[0].Kind)
	assert.Equal(t, "B not found in vault", result.Warnings[0].String())

	// Consent is only requested for secrets that exist.
	assert.Equal(t, []string{"A"}, asked)
}

func TestInjectConsentDenied(t *testing.T) {
	lock := newLock(t, "A")
	v := newVault(t, map[string]string{"A": "value-a"})

	var asked []string
	result, err := Inject(lock, v, recordingConsent(map[string]Decision{"A": Deny}, &asked))
	require.NoError(t, err)

	assert.NotContains(t, result.Env, "A")
	assert.Empty(t, result.Injected)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarnDenied, result.Warnings[0].Kind)
	assert.Equal(t, "access denied for A", result.Warnings[0].String())
	assert.Equal(t, "formal", result.Env[EnvTone])
}

func TestInjectDenialDoesNotBlockOthers(t *testing.T) {
	lock := newLock(t, "FIRST", "SECOND", "THIRD")
	v := newVault(t, map[string]string{"FIRST": "1", "SECOND": "2", "THIRD": "3"})

	var asked []string
	decisions := map[string]Decision{"FIRST": Allow, "SECOND": Deny, "THIRD": Allow}
	result, err := Inject(lock, v, recordingConsent(decisions, &asked))
	require.NoError(t, err)

	assert.Equal(t, []string{"FIRST", "SECOND", "THIRD"}, asked)
	assert.Equal(t, []string{"FIRST", "THIRD"}, result.Injected)
	assert.Equal(t, "1", result.Env["FIRST"])
	assert.Equal(t, "3", result.Env["THIRD"])
	assert.NotContains(t, result.Env, "SECOND")
}

func TestInjectConsentErrorIsTreatedAsDenial(t *testing.T) {
	lock := newLock(t, "A", "B")
	v := newVault(t, map[string]string{"A": "1", "B": "2"})

	consent := func(name string) (Decision, error) {
		if name == "A" {
			return Allow, errors.New("no terminal")
		}
		return Allow, nil
	}

	result, err := Inject(lock, v, consent)
	require.NoError(t, err)
	assert.NotContains(t, result.Env, "A")
	assert.Equal(t, "2", result.Env["B"])
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarnConsentFailed, result.Warnings[0].Kind)
}

func TestInjectNoContainer(t *testing.T) {
	lock := container.New(filepath.Join(t.TempDir(), container.DefaultFileName), []byte("master"))
	v := newVault(t, nil)

	called := false
	consent := func(string) (Decision, error) {
		called = true
		return Allow, nil
	}

	result, err := Inject(lock, v, consent)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, kerrors.ErrContainerNotFound)
	assert.True(t, IsNoContainer(err))
	assert.False(t, called)
}

func TestInjectEmptyCredentialsStillSetsPersonality(t *testing.T) {
	lock := newLock(t)
	v := newVault(t, nil)

	result, err := Inject(lock, v, func(string) (Decision, error) { return Allow, nil })
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, map[string]string{
		EnvSystemPrompt: "You are a financial analyst.",
		EnvTone:         "formal",
	}, result.Env)
}

type failingLookup struct{}

func (failingLookup) Retrieve(string) (string, bool, error) {
	return "", false, kerrors.ErrVaultAccess
}

func TestInjectVaultUnavailable(t *testing.T) {
	lock := newLock(t, "A")

	_, err := Inject(lock, failingLookup{}, func(string) (Decision, error) { return Allow, nil })
	assert.ErrorIs(t, err, kerrors.ErrVaultAccess)
}

func TestInjectSkipsRegistryEntry(t *testing.T) {
	lock := newLock(t, vault.RegistryName, "A")
	v := newVault(t, map[string]string{"A": "value-a"})

	var asked []string
	result, err := Inject(lock, v, recordingConsent(map[string]Decision{vault.RegistryName: Allow, "A": Allow}, &asked))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, asked)
	assert.NotContains(t, result.Env, vault.RegistryName)
	assert.Equal(t, []string{"A"}, result.Injected)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarnInvalidName, result.Warnings[0].Kind)
	assert.ErrorIs(t, result.Warnings[0].Err, kerrors.ErrInvalidKeyName)
}

func TestInjectCredentialShadowedByPersonality(t *testing.T) {
	lock := newLock(t, EnvTone, "A")
	v := newVault(t, map[string]string{EnvTone: "from-vault", "A": "value-a"})

	var asked []string
	result, err := Inject(lock, v, recordingConsent(map[string]Decision{EnvTone: Allow, "A": Allow}, &asked))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, asked)
	assert.Equal(t, "formal", result.Env[EnvTone])
	assert.Equal(t, []string{"A"}, result.Injected)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, Warning{Name: EnvTone, Kind: WarnShadowed}, result.Warnings[0])
	assert.Contains(t, result.Warnings[0].String(), "personality")
}

func TestPersonalityVar(t *testing.T) {
	tests := map[string]string{
		"system_prompt": EnvSystemPrompt,
		"tone":          EnvTone,
		"language":      "AGENT_LANGUAGE",
		"max-tokens":    "AGENT_MAX_TOKENS",
		"model.name":    "AGENT_MODEL_NAME",
	}
	for key, want := range tests {
		assert.Equal(t, want, PersonalityVar(key), key)
	}
}

func TestComposeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/home/agent", "AGENT_TONE=stale", "EMPTY="}
	injected := map[string]string{"AGENT_TONE": "friendly", "OPENAI_API_KEY": "sk"}

	got := ComposeEnv(base, injected)
	assert.Equal(t, []string{
		"PATH=/usr/bin",
		"HOME=/home/agent",
		"EMPTY=",
		"AGENT_TONE=friendly",
		"OPENAI_API_KEY=sk",
	}, got)

	// The base slice is not modified.
	assert.Equal(t, "AGENT_TONE=stale", base[2])
}
